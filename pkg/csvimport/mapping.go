package csvimport

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/agentstation/metalayer/pkg/constants"
)

// IdentifierColumn maps a column to an identifier type.
type IdentifierColumn struct {
	Type   string  `yaml:"type"`
	Column string  `yaml:"column"`
	Weight float64 `yaml:"weight"`
}

// Validate implements validation.Validatable.
func (c IdentifierColumn) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Type, validation.Required),
		validation.Field(&c.Column, validation.Required),
		validation.Field(&c.Weight, validation.Min(0.0), validation.Max(1.0)),
	)
}

// SubjectColumn maps a comma-separated column to a subject type.
type SubjectColumn struct {
	Column string `yaml:"column"`
	Type   string `yaml:"type"`
	Weight int    `yaml:"weight"`
}

// Validate implements validation.Validatable.
func (c SubjectColumn) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Column, validation.Required),
		validation.Field(&c.Type, validation.Required),
		validation.Field(&c.Weight, validation.Min(0)),
	)
}

// FieldMapping says which columns of a feed hold which fields. Scalar
// fields take a list of column names; the first non-empty one wins.
// Identifiers are listed in precedence order, so the first one present
// in a row becomes its primary identifier.
type FieldMapping struct {
	Title         []string `yaml:"title"`
	Language      []string `yaml:"language"`
	Medium        []string `yaml:"medium"`
	Series        []string `yaml:"series"`
	Publisher     []string `yaml:"publisher"`
	Imprint       []string `yaml:"imprint"`
	Issued        []string `yaml:"issued"`
	Published     []string `yaml:"published"`
	SortAuthor    []string `yaml:"sort_author"`
	DisplayAuthor []string `yaml:"display_author"`

	Identifiers []IdentifierColumn `yaml:"identifiers"`
	Subjects    []SubjectColumn    `yaml:"subjects"`
}

// DefaultMapping is the column layout of a library staff spreadsheet.
func DefaultMapping() FieldMapping {
	return FieldMapping{
		Title:         []string{"title"},
		Language:      []string{"language"},
		Medium:        []string{"medium"},
		Series:        []string{"series"},
		Publisher:     []string{"publisher"},
		Imprint:       []string{"imprint"},
		Issued:        []string{"issued"},
		Published:     []string{"published", "publication year"},
		SortAuthor:    []string{"file author as"},
		DisplayAuthor: []string{"author", "display author as"},
		Identifiers: []IdentifierColumn{
			{Type: constants.IdentifierAxis360, Column: "axis 360 id", Weight: 0.75},
			{Type: constants.IdentifierOverdrive, Column: "overdrive id", Weight: 0.75},
			{Type: constants.IdentifierThreeM, Column: "3m id", Weight: 0.75},
			{Type: constants.IdentifierISBN, Column: "isbn", Weight: 0.75},
		},
		Subjects: []SubjectColumn{
			{Column: "tags", Type: constants.SubjectTag, Weight: 100},
			{Column: "age", Type: constants.SubjectAgeRange, Weight: 100},
			{Column: "audience", Type: constants.SubjectFreeformAudience, Weight: 100},
		},
	}
}

// Validate implements validation.Validatable.
func (m FieldMapping) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Identifiers, validation.Required),
		validation.Field(&m.Subjects),
	)
}

// identifierColumns lists the identifier column names in precedence order.
func (m FieldMapping) identifierColumns() []string {
	out := make([]string, 0, len(m.Identifiers))
	for _, c := range m.Identifiers {
		out = append(out, c.Column)
	}
	return out
}

// Row is one record of a feed keyed by lowercased column name.
type Row map[string]string

// NewRow zips a header with a record. Short records are padded with
// empty values.
func NewRow(header, record []string) Row {
	row := make(Row, len(header))
	for i, name := range header {
		key := normalizeColumn(name)
		if key == "" {
			continue
		}
		if i < len(record) {
			row[key] = strings.TrimSpace(record[i])
		} else {
			row[key] = ""
		}
	}
	return row
}

// Field returns the first non-empty value among names.
func (r Row) Field(names ...string) string {
	for _, name := range names {
		if v := r[normalizeColumn(name)]; v != "" {
			return v
		}
	}
	return ""
}

// Has reports whether the row has a column called name, empty or not.
func (r Row) Has(name string) bool {
	_, ok := r[normalizeColumn(name)]
	return ok
}

// List splits a comma-separated value, dropping empty items.
func (r Row) List(names ...string) []string {
	value := r.Field(names...)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
