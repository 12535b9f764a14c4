package metadata

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/metalayer/pkg/constants"
)

// CirculationData is what a license source says about the copies of one
// title available to one collection. Nil counts mean "unknown, leave the
// pool alone".
type CirculationData struct {
	DataSource         string          `yaml:"data_source"`
	PrimaryIdentifier  *IdentifierData `yaml:"primary_identifier"`
	LicensesOwned      *int            `yaml:"licenses_owned,omitempty"`
	LicensesAvailable  *int            `yaml:"licenses_available,omitempty"`
	LicensesReserved   *int            `yaml:"licenses_reserved,omitempty"`
	PatronsInHoldQueue *int            `yaml:"patrons_in_hold_queue,omitempty"`
	// LastChecked is when the counts were observed. Nil means now.
	LastChecked      *utc.Time    `yaml:"last_checked,omitempty"`
	DefaultRightsURI string       `yaml:"default_rights_uri"`
	Links            []LinkData   `yaml:"links,omitempty"`
	Formats          []FormatData `yaml:"formats,omitempty"`
}

// NewCirculationData resolves the default rights URI (explicit, then the
// source's default, then unknown) and runs links through WithLinks.
func NewCirculationData(c CirculationData) *CirculationData {
	c.DefaultRightsURI = defaultRights(c.DataSource, c.DefaultRightsURI)
	c.Formats = append([]FormatData(nil), c.Formats...)
	return c.WithLinks(c.Links)
}

func defaultRights(source, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if d := constants.DefaultRightsFor(source); d != "" {
		return d
	}
	return constants.RightsUnknown
}

// WithLinks returns a copy whose Links are the circulation links in raw.
// Every open-access download, and every book link whose rights are open
// access, gets exactly one FormatData keyed by href.
func (c *CirculationData) WithLinks(raw []LinkData) *CirculationData {
	out := *c
	out.Links = nil
	out.Formats = append([]FormatData(nil), c.Formats...)

	for i := range raw {
		link := raw[i]
		if !constants.IsCirculationRel(link.Rel) {
			continue
		}
		out.Links = append(out.Links, link)

		rights := link.RightsURI
		if rights == "" {
			rights = out.DefaultRightsURI
		}
		openAccessLink := link.Rel == constants.RelOpenAccessDownload && link.Href != ""
		openAccessRights := link.Href != "" && constants.IsBookMediaType(link.MediaType) && constants.IsOpenAccessRights(rights)
		if !openAccessLink && !openAccessRights {
			continue
		}
		if openAccessLink && rights != constants.RightsInCopyright && !constants.IsOpenAccessRights(rights) {
			// The link says it is open access and the rights do not
			// contradict it.
			rights = constants.RightsGenericOpenAccess
		}

		found := false
		for j := range out.Formats {
			f := &out.Formats[j]
			if f.Link != nil && f.Link.Href == link.Href {
				if f.RightsURI == "" {
					f.RightsURI = rights
				}
				found = true
				break
			}
		}
		if !found {
			l := link
			out.Formats = append(out.Formats, FormatData{
				ContentType: link.MediaType,
				DRMScheme:   constants.DRMNone,
				Link:        &l,
				RightsURI:   rights,
			})
		}
	}
	return &out
}

// HasOpenAccessLink reports whether any link is a usable open-access download.
func (c *CirculationData) HasOpenAccessLink() bool {
	for _, l := range c.Links {
		if l.Rel == constants.RelOpenAccessDownload && l.Href != "" && l.RightsURI != constants.RightsInCopyright {
			return true
		}
	}
	return false
}

// HasCounts reports whether any license count is set.
func (c *CirculationData) HasCounts() bool {
	return c.LicensesOwned != nil || c.LicensesAvailable != nil ||
		c.LicensesReserved != nil || c.PatronsInHoldQueue != nil
}

// CheckedAt returns LastChecked, or now when it is unset.
func (c *CirculationData) CheckedAt() utc.Time {
	if c.LastChecked != nil {
		return *c.LastChecked
	}
	return utc.Now()
}
