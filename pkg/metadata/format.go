package metadata

// FormatData is a way a title can be delivered.
type FormatData struct {
	ContentType string    `yaml:"content_type,omitempty"`
	DRMScheme   string    `yaml:"drm_scheme"`
	Link        *LinkData `yaml:"link,omitempty"`
	RightsURI   string    `yaml:"rights_uri,omitempty"`
}

// NewFormatData builds a format whose rights default to the link's.
func NewFormatData(contentType, drmScheme string, link *LinkData, rightsURI string) FormatData {
	if rightsURI == "" && link != nil {
		rightsURI = link.RightsURI
	}
	return FormatData{ContentType: contentType, DRMScheme: drmScheme, Link: link, RightsURI: rightsURI}
}
