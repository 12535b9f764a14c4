package metadata

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/agentstation/metalayer/pkg/errors"
)

// LinkData points at a resource by URL or carries it inline.
type LinkData struct {
	Rel       string    `yaml:"rel"`
	Href      string    `yaml:"href,omitempty"`
	MediaType string    `yaml:"media_type,omitempty"`
	Content   string    `yaml:"content,omitempty"`
	Thumbnail *LinkData `yaml:"thumbnail,omitempty"`
	// RightsURI is set by sources that license each link separately.
	RightsURI string `yaml:"rights_uri,omitempty"`
}

// NewLinkData validates and returns a link. Rel is required, and so is
// one of Href or Content.
func NewLinkData(l LinkData) (*LinkData, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate reports a ValidationError for a malformed link.
func (l LinkData) Validate() error {
	err := validation.ValidateStruct(&l,
		validation.Field(&l.Rel, validation.Required),
		validation.Field(&l.Href, validation.When(l.Content == "", validation.Required.Error("either href or content is required"))),
	)
	if err == nil {
		return nil
	}
	if fields, ok := err.(validation.Errors); ok {
		for _, field := range []string{"Rel", "Href"} {
			if ferr, ok := fields[field]; ok {
				return errors.NewValidationError(strings.ToLower(field), nil, ferr.Error())
			}
		}
	}
	return errors.WrapValidation("link", err)
}
