package metadata

import "strings"

// SubjectData classifies a title. Identifier and name are trimmed
// because subjects are often matched by keyword.
type SubjectData struct {
	Type       string `yaml:"type"`
	Identifier string `yaml:"identifier,omitempty"`
	Name       string `yaml:"name,omitempty"`
	Weight     int    `yaml:"weight"`
}

// SubjectKey identifies a classification for replace-set-difference.
type SubjectKey struct {
	Type       string
	Identifier string
	Name       string
	Weight     int
}

// NewSubjectData builds a trimmed subject.
func NewSubjectData(typ, identifier, name string, weight int) SubjectData {
	return SubjectData{
		Type:       typ,
		Identifier: strings.TrimSpace(identifier),
		Name:       strings.TrimSpace(name),
		Weight:     weight,
	}
}

// Key returns (type, identifier, name, weight).
func (s SubjectData) Key() SubjectKey {
	return SubjectKey{Type: s.Type, Identifier: s.Identifier, Name: s.Name, Weight: s.Weight}
}
