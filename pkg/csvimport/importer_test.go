package csvimport

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
	"github.com/agentstation/metalayer/pkg/metadata"
)

const staffFeed = `Title,Author,File Author As,ISBN,Overdrive ID,Medium,Language,Tags,Age,Published,Publisher
Moby-Dick,Herman Melville,"Melville, Herman",9780142437247,od-123,Book,en,"whales, sea stories",14-17,1851,Harper
Typee,Herman Melville,,9780140434880,,Audio,,,,,
`

func newImporter(t *testing.T, opts ...Option) *Importer {
	t.Helper()
	im, err := New(constants.DataSourceLibraryStaff, opts...)
	require.NoError(t, err)
	return im
}

func TestNew(t *testing.T) {
	_, err := New("")
	assert.True(t, errors.IsValidationError(err))

	_, err = New(constants.DataSourceLibraryStaff, WithDefaultMedium("Scroll"))
	assert.True(t, errors.IsValidationError(err))

	_, err = New(constants.DataSourceLibraryStaff, WithMapping(FieldMapping{}))
	assert.True(t, errors.IsConfigError(err))

	bad := DefaultMapping()
	bad.Identifiers[0].Weight = 1.5
	_, err = New(constants.DataSourceLibraryStaff, WithMapping(bad))
	assert.True(t, errors.IsConfigError(err))
}

func TestReadCSV(t *testing.T) {
	records, err := newImporter(t).ReadCSV(context.Background(), strings.NewReader(staffFeed), "staff.csv")
	require.NoError(t, err)
	require.Len(t, records, 2)

	moby := records[0]
	assert.Equal(t, constants.DataSourceLibraryStaff, moby.DataSource)
	assert.Equal(t, "Moby-Dick", moby.Title)
	assert.Equal(t, "eng", moby.Language)
	assert.Equal(t, constants.MediumBook, moby.Medium)
	assert.Equal(t, "Harper", moby.Publisher)

	// Overdrive outranks ISBN even though ISBN comes first in the file.
	require.NotNil(t, moby.PrimaryIdentifier)
	assert.Equal(t, metadata.IdentifierData{Type: constants.IdentifierOverdrive, Identifier: "od-123", Weight: 0.75}, *moby.PrimaryIdentifier)
	assert.Len(t, moby.Identifiers, 2)

	assert.Equal(t, []metadata.SubjectData{
		{Type: constants.SubjectTag, Identifier: "whales", Weight: 100},
		{Type: constants.SubjectTag, Identifier: "sea stories", Weight: 100},
		{Type: constants.SubjectAgeRange, Identifier: "14-17", Weight: 100},
	}, moby.Subjects)

	require.Len(t, moby.Contributors, 1)
	assert.Equal(t, "Melville, Herman", moby.Contributors[0].SortName)
	assert.Equal(t, "Herman Melville", moby.Contributors[0].DisplayName)
	assert.Equal(t, []string{constants.RoleAuthor}, moby.Contributors[0].Roles)

	require.NotNil(t, moby.Published)
	assert.Equal(t, 1851, moby.Published.Time.Year())
	assert.Equal(t, time.January, moby.Published.Time.Month())
	assert.Nil(t, moby.Issued)

	typee := records[1]
	assert.Equal(t, constants.MediumAudio, typee.Medium)
	assert.Equal(t, "eng", typee.Language)
	assert.Equal(t, constants.IdentifierISBN, typee.PrimaryIdentifier.Type)
	assert.Empty(t, typee.Subjects)
	assert.Empty(t, typee.Contributors[0].SortName)
}

func TestReadCSVRequiresIdentifierColumn(t *testing.T) {
	feed := "title,author\nMoby-Dick,Herman Melville\n"
	_, err := newImporter(t).ReadCSV(context.Background(), strings.NewReader(feed), "staff.csv")
	require.Error(t, err)

	var perr *errors.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, FormatCSV, perr.Format)
	assert.Equal(t, "staff.csv", perr.File)
	assert.Contains(t, perr.Message, "overdrive id")
	assert.Contains(t, perr.Message, "title, author")
}

func TestReadCSVMalformed(t *testing.T) {
	feed := "isbn,title\n123,un\"quoted\n"
	_, err := newImporter(t).ReadCSV(context.Background(), strings.NewReader(feed), "bad.csv")

	var perr *errors.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
}

func TestRowToMetadata(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	tests := []struct {
		name  string
		row   Row
		check func(t *testing.T, m *metadata.Metadata)
		log   string
	}{
		{
			name: "unknown medium falls back to default",
			row:  Row{"isbn": "1", "medium": "Scroll"},
			check: func(t *testing.T, m *metadata.Metadata) {
				assert.Equal(t, constants.MediumBook, m.Medium)
			},
			log: "ignored unrecognized medium",
		},
		{
			name: "bad date is dropped",
			row:  Row{"isbn": "1", "issued": "sometime"},
			check: func(t *testing.T, m *metadata.Metadata) {
				assert.Nil(t, m.Issued)
			},
			log: "could not parse date",
		},
		{
			name: "publication year alias",
			row:  Row{"isbn": "1", "publication year": "2015-06-01"},
			check: func(t *testing.T, m *metadata.Metadata) {
				require.NotNil(t, m.Published)
				assert.Equal(t, time.June, m.Published.Time.Month())
			},
		},
		{
			name: "no identifiers",
			row:  Row{"isbn": "", "title": "Anonymous"},
			check: func(t *testing.T, m *metadata.Metadata) {
				assert.Nil(t, m.PrimaryIdentifier)
				assert.Empty(t, m.Identifiers)
				assert.Empty(t, m.Contributors)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, newImporter(t).RowToMetadata(ctx, tt.row))
			if tt.log != "" {
				tl.AssertContains(t, tt.log)
			}
		})
	}
}

func TestReadXLSX(t *testing.T) {
	book := excelize.NewFile()
	defer func() { _ = book.Close() }()
	sheet := book.GetSheetName(0)
	rows := [][]any{
		{"Title", "Axis 360 ID", "ISBN", "Audience"},
		{"Moby-Dick", "ax-1", "9780142437247", "Adult"},
		{},
		{"Typee", "", "9780140434880", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	records, err := newImporter(t).ReadXLSX(context.Background(), &buf, "staff.xlsx")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, constants.IdentifierAxis360, records[0].PrimaryIdentifier.Type)
	assert.Equal(t, []metadata.SubjectData{{Type: constants.SubjectFreeformAudience, Identifier: "Adult", Weight: 100}}, records[0].Subjects)
	assert.Equal(t, "Typee", records[1].Title)
}

func TestReadXLSXMatchesCSV(t *testing.T) {
	lines, err := csv.NewReader(strings.NewReader(staffFeed)).ReadAll()
	require.NoError(t, err)

	book := excelize.NewFile()
	defer func() { _ = book.Close() }()
	sheet := book.GetSheetName(0)
	for i, line := range lines {
		row := make([]any, len(line))
		for j, v := range line {
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	fromCSV, err := newImporter(t).ReadCSV(context.Background(), strings.NewReader(staffFeed), "staff.csv")
	require.NoError(t, err)
	fromXLSX, err := newImporter(t).ReadXLSX(context.Background(), &buf, "staff.xlsx")
	require.NoError(t, err)

	sameInstant := cmp.Comparer(func(a, b utc.Time) bool { return a.Time.Equal(b.Time) })
	if diff := cmp.Diff(fromCSV, fromXLSX, sameInstant); diff != "" {
		t.Errorf("xlsx records differ from csv (-csv +xlsx):\n%s", diff)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staff.csv")
	require.NoError(t, os.WriteFile(path, []byte(staffFeed), 0o600))

	records, err := newImporter(t).ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = newImporter(t).ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatXLSX, FormatFor("feed.XLSX"))
	assert.Equal(t, FormatCSV, FormatFor("feed.csv"))
	assert.Equal(t, FormatCSV, FormatFor("feed"))
}
