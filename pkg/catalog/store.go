package catalog

import (
	"context"

	"github.com/agentstation/utc"
)

// IdentifierStore manages identifiers and the equivalence graph.
type IdentifierStore interface {
	// FindOrCreateIdentifier returns the identifier for (typ, value), creating it if needed.
	FindOrCreateIdentifier(ctx context.Context, typ, value string) (*Identifier, bool, error)
	Identifier(ctx context.Context, id string) (*Identifier, error)
	LookupIdentifier(ctx context.Context, typ, value string) (*Identifier, error)
	// IdentifiersByValue returns the identifiers of type typ among values that exist.
	IdentifiersByValue(ctx context.Context, typ string, values []string) ([]*Identifier, error)

	// AddEquivalency records or re-weights an input -> output claim from source.
	AddEquivalency(ctx context.Context, inputID, outputID, source string, strength float64) (*Equivalency, error)
	Equivalencies(ctx context.Context, identifierID string) ([]*Equivalency, error)
	// EquivalentIdentifierIDs walks the graph from id up to levels hops,
	// following edges of at least threshold strength. The result includes id.
	EquivalentIdentifierIDs(ctx context.Context, id string, levels int, threshold float64) ([]string, error)
}

// EditionQuery filters editions. Empty fields are ignored; Title is
// matched case-insensitively.
type EditionQuery struct {
	Title           string
	Medium          string
	PermanentWorkID string
	Author          string
	SortAuthor      string
	IdentifierIDs   []string
}

// EditionStore manages editions.
type EditionStore interface {
	FindOrCreateEdition(ctx context.Context, source, identifierID string) (*Edition, bool, error)
	Edition(ctx context.Context, id string) (*Edition, error)
	LookupEdition(ctx context.Context, source, identifierID string) (*Edition, error)
	FindEditions(ctx context.Context, q EditionQuery) ([]*Edition, error)
	UpdateEdition(ctx context.Context, e *Edition) error
}

// ContributorLookup is the natural key used to find a contributor.
// Earlier non-empty fields win: VIAF, then LC, then SortName.
type ContributorLookup struct {
	SortName string
	LC       string
	VIAF     string
}

// ContributorStore manages contributors and their contributions.
type ContributorStore interface {
	FindOrCreateContributor(ctx context.Context, key ContributorLookup) (*Contributor, bool, error)
	Contributor(ctx context.Context, id string) (*Contributor, error)
	// ContributorsByDisplayName returns contributors with exactly this
	// display name and a known sort name.
	ContributorsByDisplayName(ctx context.Context, displayName string) ([]*Contributor, error)
	UpdateContributor(ctx context.Context, c *Contributor) error

	AddContribution(ctx context.Context, editionID, contributorID, role, source string) (*Contribution, bool, error)
	Contributions(ctx context.Context, editionID string) ([]*Contribution, error)
	DeleteContribution(ctx context.Context, id string) error
}

// ClassificationStore manages subjects and classifications.
type ClassificationStore interface {
	FindOrCreateSubject(ctx context.Context, typ, identifier, name string) (*Subject, bool, error)
	Subject(ctx context.Context, id string) (*Subject, error)
	Classify(ctx context.Context, identifierID, subjectID, source string, weight int) (*Classification, error)
	Classifications(ctx context.Context, identifierID string) ([]*Classification, error)
	DeleteClassification(ctx context.Context, id string) error
}

// LinkStore manages hyperlinks, resources and representations.
type LinkStore interface {
	FindOrCreateHyperlink(ctx context.Context, identifierID, rel, source, resourceID string) (*Hyperlink, bool, error)
	Hyperlinks(ctx context.Context, identifierID string) ([]*Hyperlink, error)
	DeleteHyperlink(ctx context.Context, id string) error

	FindOrCreateResource(ctx context.Context, url, source string) (*Resource, bool, error)
	Resource(ctx context.Context, id string) (*Resource, error)
	UpdateResource(ctx context.Context, r *Resource) error

	FindOrCreateRepresentation(ctx context.Context, url string) (*Representation, bool, error)
	Representation(ctx context.Context, id string) (*Representation, error)
	UpdateRepresentation(ctx context.Context, r *Representation) error
	// Thumbnails returns representations whose ThumbnailOfID is id.
	Thumbnails(ctx context.Context, id string) ([]*Representation, error)
}

// LibraryStore manages libraries and collections.
type LibraryStore interface {
	CreateLibrary(ctx context.Context, name string) (*Library, error)
	Library(ctx context.Context, id string) (*Library, error)
	CreateCollection(ctx context.Context, name, source string, libraryIDs ...string) (*Collection, error)
	Collection(ctx context.Context, id string) (*Collection, error)
	CollectionByName(ctx context.Context, name string) (*Collection, error)
}

// CirculationStore manages license pools, delivery mechanisms and loans.
type CirculationStore interface {
	FindOrCreateLicensePool(ctx context.Context, source, identifierID, collectionID string) (*LicensePool, bool, error)
	LicensePool(ctx context.Context, id string) (*LicensePool, error)
	// LicensePoolsForIdentifier returns every pool for the identifier, in any collection.
	LicensePoolsForIdentifier(ctx context.Context, identifierID string) ([]*LicensePool, error)
	UpdateLicensePool(ctx context.Context, p *LicensePool) error

	FindOrCreateDeliveryMechanism(ctx context.Context, contentType, drmScheme string) (*DeliveryMechanism, bool, error)
	DeliveryMechanism(ctx context.Context, id string) (*DeliveryMechanism, error)

	FindOrCreatePoolDeliveryMechanism(ctx context.Context, source, identifierID, mechanismID string) (*PoolDeliveryMechanism, bool, error)
	PoolDeliveryMechanisms(ctx context.Context, source, identifierID string) ([]*PoolDeliveryMechanism, error)
	UpdatePoolDeliveryMechanism(ctx context.Context, m *PoolDeliveryMechanism) error
	DeletePoolDeliveryMechanism(ctx context.Context, id string) error

	CreateLoan(ctx context.Context, l *Loan) error
	LoansFulfilledBy(ctx context.Context, poolMechanismID string) ([]*Loan, error)
	UpdateLoan(ctx context.Context, l *Loan) error
}

// MeasurementStore manages measurements. AddMeasurement marks the new
// measurement as the most recent for its (identifier, source, quantity).
type MeasurementStore interface {
	AddMeasurement(ctx context.Context, m *Measurement) error
	Measurements(ctx context.Context, identifierID string) ([]*Measurement, error)
	UpdateMeasurement(ctx context.Context, m *Measurement) error
}

// CoverageStore manages coverage records keyed by (identifier, source, operation).
type CoverageStore interface {
	Coverage(ctx context.Context, identifierID, source, operation string) (*CoverageRecord, error)
	UpsertCoverage(ctx context.Context, identifierID, source, operation string, timestamp *utc.Time) (*CoverageRecord, error)
}

// Store is the complete record store.
type Store interface {
	IdentifierStore
	EditionStore
	ContributorStore
	ClassificationStore
	LinkStore
	LibraryStore
	CirculationStore
	MeasurementStore
	CoverageStore
}
