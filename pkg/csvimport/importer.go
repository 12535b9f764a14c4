// Package csvimport turns spreadsheet feeds of book metadata (CSV or
// XLSX) into metadata records ready to be applied to the catalog.
package csvimport

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstation/utc"
	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"

	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
	"github.com/agentstation/metalayer/pkg/metadata"
)

// Feed formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Importer reads feeds laid out according to a FieldMapping.
type Importer struct {
	source  string
	options *options
}

type options struct {
	mapping         FieldMapping
	defaultLanguage string
	defaultMedium   string
	sheet           string
}

// Option configures an Importer.
type Option func(*options) error

func defaultOptions() *options {
	return &options{
		mapping:         DefaultMapping(),
		defaultLanguage: "eng",
		defaultMedium:   constants.MediumBook,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithMapping replaces the default column layout.
func WithMapping(m FieldMapping) Option {
	return func(o *options) error {
		if err := m.Validate(); err != nil {
			return errors.NewConfigError("csvimport", "invalid field mapping", err)
		}
		o.mapping = m
		return nil
	}
}

// WithDefaultLanguage sets the language used when a row has none.
func WithDefaultLanguage(lang string) Option {
	return func(o *options) error {
		o.defaultLanguage = lang
		return nil
	}
}

// WithDefaultMedium sets the medium used when a row has none or an
// unrecognized one.
func WithDefaultMedium(medium string) Option {
	return func(o *options) error {
		if !constants.IsKnownMedium(medium) {
			return errors.NewValidationError("medium", medium, "unknown medium")
		}
		o.defaultMedium = medium
		return nil
	}
}

// WithSheet selects the XLSX worksheet to read. The default is the
// workbook's first sheet.
func WithSheet(name string) Option {
	return func(o *options) error {
		o.sheet = name
		return nil
	}
}

// New creates an importer whose records are attributed to source.
func New(source string, opts ...Option) (*Importer, error) {
	if source == "" {
		return nil, errors.NewValidationError("data_source", source, "data source is required")
	}
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	return &Importer{source: source, options: o}, nil
}

// FormatFor guesses a feed's format from its file name.
func FormatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// ReadFile reads the feed at path, choosing the format by extension.
func (im *Importer) ReadFile(ctx context.Context, path string) ([]*metadata.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	if FormatFor(path) == FormatXLSX {
		return im.ReadXLSX(ctx, f, path)
	}
	return im.ReadCSV(ctx, f, path)
}

// ReadCSV reads a CSV feed whose first line is the header. name is
// used in errors only.
func (im *Importer) ReadCSV(ctx context.Context, r io.Reader, name string) ([]*metadata.Metadata, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if stderrors.As(err, &perr) {
			return nil, &errors.ParseError{
				Format:  FormatCSV,
				File:    name,
				Line:    perr.Line,
				Column:  perr.Column,
				Message: perr.Err.Error(),
				Err:     err,
			}
		}
		return nil, errors.WrapIO("read", name, err)
	}
	return im.records(ctx, FormatCSV, name, records)
}

// ReadXLSX reads the configured worksheet of a workbook whose first
// row is the header.
func (im *Importer) ReadXLSX(ctx context.Context, r io.Reader, name string) ([]*metadata.Metadata, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.NewParseError(FormatXLSX, name, "cannot open workbook", err)
	}
	defer func() { _ = book.Close() }()

	sheet := im.options.sheet
	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.NewParseError(FormatXLSX, name, "workbook has no sheets", nil)
		}
		sheet = sheets[0]
	}
	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, errors.NewParseError(FormatXLSX, name, "cannot read sheet "+sheet, err)
	}
	return im.records(ctx, FormatXLSX, name, rows)
}

// records checks that the header can identify books before turning
// any row into a record.
func (im *Importer) records(ctx context.Context, format, name string, lines [][]string) ([]*metadata.Metadata, error) {
	if len(lines) == 0 {
		return nil, errors.NewParseError(format, name, "feed has no header", nil)
	}
	header := NewRow(lines[0], nil)
	found := false
	for _, column := range im.options.mapping.identifierColumns() {
		if header.Has(column) {
			found = true
			break
		}
	}
	if !found {
		columns := make([]string, 0, len(lines[0]))
		for _, c := range lines[0] {
			columns = append(columns, normalizeColumn(c))
		}
		return nil, errors.NewParseError(format, name,
			"could not find a primary identifier column; possibilities: "+
				strings.Join(im.options.mapping.identifierColumns(), ", ")+
				"; actual columns: "+strings.Join(columns, ", "), nil)
	}

	ctx = logging.WithSource(ctx, im.source)
	out := make([]*metadata.Metadata, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if blank(line) {
			continue
		}
		out = append(out, im.RowToMetadata(ctx, NewRow(lines[0], line)))
	}
	logging.FromContext(ctx).Debug().
		Str("file", name).
		Int("records", len(out)).
		Msg("read metadata feed")
	return out, nil
}

// RowToMetadata turns one row into a record. Problems with individual
// values are logged and the value is dropped or defaulted.
func (im *Importer) RowToMetadata(ctx context.Context, row Row) *metadata.Metadata {
	m := im.options.mapping
	logger := logging.FromContext(ctx)

	language := row.Field(m.Language...)
	if language == "" {
		language = im.options.defaultLanguage
	}
	medium := row.Field(m.Medium...)
	if medium == "" {
		medium = im.options.defaultMedium
	}
	if !constants.IsKnownMedium(medium) {
		logger.Warn().Str("medium", medium).Msg("ignored unrecognized medium")
		medium = im.options.defaultMedium
	}

	var primary *metadata.IdentifierData
	var identifiers []metadata.IdentifierData
	for _, column := range m.Identifiers {
		value := row.Field(column.Column)
		if value == "" {
			continue
		}
		id := metadata.IdentifierData{Type: column.Type, Identifier: value, Weight: column.Weight}
		identifiers = append(identifiers, id)
		if primary == nil {
			primary = &id
		}
	}

	var subjects []metadata.SubjectData
	for _, column := range m.Subjects {
		for _, value := range row.List(column.Column) {
			subjects = append(subjects, metadata.NewSubjectData(column.Type, value, "", column.Weight))
		}
	}

	var contributors []metadata.ContributorData
	sortAuthor, displayAuthor := row.Field(m.SortAuthor...), row.Field(m.DisplayAuthor...)
	if sortAuthor != "" || displayAuthor != "" {
		contributors = append(contributors, metadata.NewContributorData(sortAuthor, displayAuthor, constants.RoleAuthor))
	}

	return metadata.New(metadata.Metadata{
		DataSource:        im.source,
		Title:             row.Field(m.Title...),
		Language:          language,
		Medium:            medium,
		Series:            row.Field(m.Series...),
		Publisher:         row.Field(m.Publisher...),
		Imprint:           row.Field(m.Imprint...),
		Issued:            date(ctx, row.Field(m.Issued...)),
		Published:         date(ctx, row.Field(m.Published...)),
		PrimaryIdentifier: primary,
		Identifiers:       identifiers,
		Subjects:          subjects,
		Contributors:      contributors,
	})
}

// date parses value in any of the layouts cast understands. A bare
// year is taken as January 1 of that year.
func date(ctx context.Context, value string) *utc.Time {
	if value == "" {
		return nil
	}
	if len(value) == 4 && strings.Trim(value, "0123456789") == "" {
		value += "-01-01"
	}
	t, err := cast.ToTimeE(value)
	if err != nil {
		logging.FromContext(ctx).Warn().Str("value", value).Msg("could not parse date")
		return nil
	}
	parsed := utc.New(t)
	return &parsed
}

func blank(line []string) bool {
	for _, v := range line {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
