package catalog

import (
	"strings"

	"github.com/agentstation/utc"
)

// Identifier names a title in some foreign identifier space.
type Identifier struct {
	ID    string `yaml:"id"`
	Type  string `yaml:"type"`
	Value string `yaml:"identifier"`
}

// String returns the "type/value" form used in logs.
func (i *Identifier) String() string {
	if i == nil {
		return "<nil>"
	}
	return i.Type + "/" + i.Value
}

// Same reports whether two identifiers name the same thing.
func (i *Identifier) Same(typ, value string) bool {
	return i != nil && i.Type == typ && i.Value == value
}

// Equivalency is a directed, weighted claim that two identifiers name the same work.
type Equivalency struct {
	ID         string  `yaml:"id"`
	InputID    string  `yaml:"input_id"`
	OutputID   string  `yaml:"output_id"`
	DataSource string  `yaml:"data_source"`
	Strength   float64 `yaml:"strength"`
}

// Library is a patron-facing library.
type Library struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Collection is a set of licenses acquired from one source and shared by libraries.
type Collection struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	DataSource string   `yaml:"data_source,omitempty"`
	LibraryIDs []string `yaml:"library_ids,omitempty"`
}

// Edition is one data source's view of a title.
type Edition struct {
	ID                  string         `yaml:"id"`
	DataSource          string         `yaml:"data_source"`
	PrimaryIdentifierID string         `yaml:"primary_identifier_id"`
	Title               string         `yaml:"title,omitempty"`
	Subtitle            string         `yaml:"subtitle,omitempty"`
	SortTitle           string         `yaml:"sort_title,omitempty"`
	Language            string         `yaml:"language,omitempty"`
	Medium              string         `yaml:"medium,omitempty"`
	Series              string         `yaml:"series,omitempty"`
	SeriesPosition      *int           `yaml:"series_position,omitempty"`
	Publisher           string         `yaml:"publisher,omitempty"`
	Imprint             string         `yaml:"imprint,omitempty"`
	Issued              *utc.Time      `yaml:"issued,omitempty"`
	Published           *utc.Time      `yaml:"published,omitempty"`
	PermanentWorkID     string         `yaml:"permanent_work_id,omitempty"`
	Author              string         `yaml:"author,omitempty"`
	SortAuthor          string         `yaml:"sort_author,omitempty"`
	CoverResourceID     string         `yaml:"cover_resource_id,omitempty"`
	CoverFullURL        string         `yaml:"cover_full_url,omitempty"`
	CoverThumbnailURL   string         `yaml:"cover_thumbnail_url,omitempty"`
	Extra               map[string]any `yaml:"extra,omitempty"`
}

// Contributor is a person or organization credited on editions.
type Contributor struct {
	ID            string         `yaml:"id"`
	SortName      string         `yaml:"sort_name,omitempty"`
	DisplayName   string         `yaml:"display_name,omitempty"`
	FamilyName    string         `yaml:"family_name,omitempty"`
	WikipediaName string         `yaml:"wikipedia_name,omitempty"`
	LC            string         `yaml:"lc,omitempty"`
	VIAF          string         `yaml:"viaf,omitempty"`
	Biography     string         `yaml:"biography,omitempty"`
	Aliases       []string       `yaml:"aliases,omitempty"`
	Extra         map[string]any `yaml:"extra,omitempty"`
}

// DefaultNames derives a family name and display name from a
// "Family, Given" sort name.
func (c *Contributor) DefaultNames() (family, display string) {
	name := strings.TrimSpace(c.SortName)
	if name == "" {
		return "", ""
	}
	family, given, ok := strings.Cut(name, ",")
	if !ok {
		return name, name
	}
	family = strings.TrimSpace(family)
	given = strings.TrimSpace(given)
	if given == "" {
		return family, family
	}
	return family, given + " " + family
}

// Contribution credits a contributor on an edition in one role.
type Contribution struct {
	ID            string `yaml:"id"`
	EditionID     string `yaml:"edition_id"`
	ContributorID string `yaml:"contributor_id"`
	Role          string `yaml:"role"`
	DataSource    string `yaml:"data_source,omitempty"`
}

// LicensePool records how many licenses one collection holds for one title.
type LicensePool struct {
	ID                 string    `yaml:"id"`
	DataSource         string    `yaml:"data_source"`
	IdentifierID       string    `yaml:"identifier_id"`
	CollectionID       string    `yaml:"collection_id"`
	LicensesOwned      int       `yaml:"licenses_owned"`
	LicensesAvailable  int       `yaml:"licenses_available"`
	LicensesReserved   int       `yaml:"licenses_reserved"`
	PatronsInHoldQueue int       `yaml:"patrons_in_hold_queue"`
	OpenAccess         bool      `yaml:"open_access"`
	Suppressed         bool      `yaml:"suppressed"`
	LicenseException   string    `yaml:"license_exception,omitempty"`
	AvailabilityTime   *utc.Time `yaml:"availability_time,omitempty"`
	LastChecked        *utc.Time `yaml:"last_checked,omitempty"`
}

// DeliveryMechanism is a (content type, DRM scheme) pair.
type DeliveryMechanism struct {
	ID          string `yaml:"id"`
	ContentType string `yaml:"content_type"`
	DRMScheme   string `yaml:"drm_scheme"`
}

// PoolDeliveryMechanism says a title from a source can be delivered
// through a mechanism under a rights status.
type PoolDeliveryMechanism struct {
	ID                  string `yaml:"id"`
	DataSource          string `yaml:"data_source"`
	IdentifierID        string `yaml:"identifier_id"`
	DeliveryMechanismID string `yaml:"delivery_mechanism_id"`
	ResourceID          string `yaml:"resource_id,omitempty"`
	RightsURI           string `yaml:"rights_uri,omitempty"`
}

// Loan is a patron's checkout of a license pool.
type Loan struct {
	ID            string `yaml:"id"`
	LicensePoolID string `yaml:"license_pool_id"`
	Patron        string `yaml:"patron"`
	FulfillmentID string `yaml:"fulfillment_id,omitempty"`
}

// Hyperlink connects an identifier to a resource under a relation.
type Hyperlink struct {
	ID           string `yaml:"id"`
	IdentifierID string `yaml:"identifier_id"`
	DataSource   string `yaml:"data_source"`
	Rel          string `yaml:"rel"`
	ResourceID   string `yaml:"resource_id"`
}

// Resource is something at a URL.
type Resource struct {
	ID               string  `yaml:"id"`
	URL              string  `yaml:"url"`
	DataSource       string  `yaml:"data_source,omitempty"`
	RepresentationID string  `yaml:"representation_id,omitempty"`
	Quality          float64 `yaml:"quality,omitempty"`
	RightsURI        string  `yaml:"rights_uri,omitempty"`
}

// Representation is a fetched copy of a resource plus cache and mirror state.
type Representation struct {
	ID              string    `yaml:"id"`
	URL             string    `yaml:"url"`
	MediaType       string    `yaml:"media_type,omitempty"`
	Content         []byte    `yaml:"content,omitempty"`
	StatusCode      int       `yaml:"status_code,omitempty"`
	ETag            string    `yaml:"etag,omitempty"`
	LastModified    string    `yaml:"last_modified,omitempty"`
	FetchedAt       *utc.Time `yaml:"fetched_at,omitempty"`
	FetchException  string    `yaml:"fetch_exception,omitempty"`
	MirrorURL       string    `yaml:"mirror_url,omitempty"`
	MirroredAt      *utc.Time `yaml:"mirrored_at,omitempty"`
	MirrorException string    `yaml:"mirror_exception,omitempty"`
	ImageHeight     int       `yaml:"image_height,omitempty"`
	ImageWidth      int       `yaml:"image_width,omitempty"`
	ThumbnailOfID   string    `yaml:"thumbnail_of_id,omitempty"`
}

// PublicURL is the mirror URL when there is one, the original otherwise.
func (r *Representation) PublicURL() string {
	if r.MirrorURL != "" {
		return r.MirrorURL
	}
	return r.URL
}

// Subject is a classification term in some scheme.
type Subject struct {
	ID         string `yaml:"id"`
	Type       string `yaml:"type"`
	Identifier string `yaml:"identifier,omitempty"`
	Name       string `yaml:"name,omitempty"`
}

// Classification attaches a subject to an identifier on a source's say-so.
type Classification struct {
	ID           string `yaml:"id"`
	IdentifierID string `yaml:"identifier_id"`
	SubjectID    string `yaml:"subject_id"`
	DataSource   string `yaml:"data_source"`
	Weight       int    `yaml:"weight"`
}

// Measurement is one observation of a numeric quantity for an identifier.
type Measurement struct {
	ID           string   `yaml:"id"`
	IdentifierID string   `yaml:"identifier_id"`
	DataSource   string   `yaml:"data_source"`
	Quantity     string   `yaml:"quantity"`
	Value        float64  `yaml:"value"`
	Weight       float64  `yaml:"weight"`
	TakenAt      utc.Time `yaml:"taken_at"`
	IsMostRecent bool     `yaml:"is_most_recent"`

	// Normalized caches the 0..1 value once computed.
	Normalized *float64 `yaml:"normalized,omitempty"`
}

// CoverageRecord marks that an operation ran for an identifier on behalf of a source.
type CoverageRecord struct {
	ID           string    `yaml:"id"`
	IdentifierID string    `yaml:"identifier_id"`
	DataSource   string    `yaml:"data_source"`
	Operation    string    `yaml:"operation,omitempty"`
	Timestamp    *utc.Time `yaml:"timestamp,omitempty"`
}
