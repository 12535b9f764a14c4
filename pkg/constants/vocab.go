package constants

// Identifier types.
const (
	IdentifierISBN        = "ISBN"
	IdentifierOverdrive   = "Overdrive ID"
	IdentifierThreeM      = "3M ID"
	IdentifierAxis360     = "Axis 360 ID"
	IdentifierGutenberg   = "Gutenberg ID"
	IdentifierBibliotheca = "Bibliotheca ID"
	IdentifierOCLCWork    = "OCLC Work ID"
	IdentifierOCLCNumber  = "OCLC Number"
	IdentifierASIN        = "ASIN"
	IdentifierURI         = "URI"
	IdentifierSimplified  = "SimplyE ID"
)

// LicenseProvidingIdentifierTypes are identifier types used by sources
// that actually lend books.
var LicenseProvidingIdentifierTypes = []string{
	IdentifierThreeM,
	IdentifierOverdrive,
	IdentifierAxis360,
	IdentifierGutenberg,
	IdentifierBibliotheca,
}

// IsLicenseProvidingIdentifierType reports whether t is a license-providing type.
func IsLicenseProvidingIdentifierType(t string) bool {
	for _, x := range LicenseProvidingIdentifierTypes {
		if x == t {
			return true
		}
	}
	return false
}

// Data sources.
const (
	DataSourceOverdrive        = "Overdrive"
	DataSourceThreeM           = "3M"
	DataSourceAxis360          = "Axis 360"
	DataSourceGutenberg        = "Gutenberg"
	DataSourceAmazon           = "Amazon"
	DataSourceContentCafe      = "Content Cafe"
	DataSourceOCLC             = "OCLC Classify"
	DataSourceMetadataWrangler = "Library Simplified metadata wrangler"
	DataSourceUnglueIt         = "unglue.it"
	DataSourceNovelist         = "NoveList Select"
	DataSourceLibraryStaff     = "Library staff"
	DataSourcePlympton         = "Plympton"
	DataSourceStandardEbooks   = "Standard Ebooks"
	DataSourceFeedbooks        = "FeedBooks"
	DataSourceInternetArchive  = "Internet Archive"
	DataSourceManual           = "Manual intervention"
)

// Contributor roles.
const (
	RolePrimaryAuthor = "Primary Author"
	RoleAuthor        = "Author"
	RoleEditor        = "Editor"
	RoleCompiler      = "Compiler"
	RoleComposer      = "Composer"
	RoleDirector      = "Director"
	RoleContributor   = "Contributor"
	RoleTranslator    = "Translator"
	RoleAdapter       = "Adapter"
	RolePhotographer  = "Photographer"
	RoleArtist        = "Artist"
	RoleLyricist      = "Lyricist"
	RoleIllustrator   = "Illustrator"
	RoleActor         = "Actor"
	RolePerformer     = "Performer"
	RoleNarrator      = "Narrator"
	RoleMusician      = "Musician"
	RoleUnknown       = "Unknown"
)

// AuthorRoles rise to the level of authorship.
var AuthorRoles = []string{RolePrimaryAuthor, RoleAuthor}

// AuthorSubstituteRoles stand in for an author when there is none.
var AuthorSubstituteRoles = []string{
	RoleEditor, RoleCompiler, RoleComposer, RoleDirector, RoleContributor,
	RoleTranslator, RoleAdapter, RolePhotographer, RoleArtist, RoleLyricist,
}

// PerformerRoles are the last resort for an author line.
var PerformerRoles = []string{RoleActor, RolePerformer, RoleNarrator, RoleMusician}

// AuthorTiers lists role groups in the order a primary author is searched for.
func AuthorTiers() [][]string {
	return [][]string{
		{RolePrimaryAuthor},
		AuthorRoles,
		{RoleUnknown},
		AuthorSubstituteRoles,
		PerformerRoles,
	}
}

// Mediums.
const (
	MediumBook       = "Book"
	MediumPeriodical = "Periodical"
	MediumAudio      = "Audio"
	MediumMusic      = "Music"
	MediumVideo      = "Video"
	MediumImage      = "Image"
	MediumCourseware = "Courseware"
)

var mediumWorkIDTags = map[string]string{
	MediumBook:       "book",
	MediumAudio:      "book",
	MediumPeriodical: "book",
	MediumMusic:      "music",
	MediumVideo:      "movie",
	MediumImage:      "image",
	MediumCourseware: "courseware",
}

// IsKnownMedium reports whether m is a recognized medium.
func IsKnownMedium(m string) bool {
	_, ok := mediumWorkIDTags[m]
	return ok
}

// WorkIDTag returns the tag a medium contributes to a permanent work ID.
// Unknown mediums contribute "book".
func WorkIDTag(medium string) string {
	if tag, ok := mediumWorkIDTags[medium]; ok {
		return tag
	}
	return "book"
}

// Subject types.
const (
	SubjectTag              = "tag"
	SubjectAgeRange         = "schema:typicalAgeRange"
	SubjectFreeformAudience = "schema:audience"
	SubjectBISAC            = "BISAC"
	SubjectLCSH             = "LCSH"
	SubjectDDC              = "DDC"
)

// Measurement quantities.
const (
	MeasurePopularity = "http://librarysimplified.org/terms/rel/popularity"
	MeasureQuality    = "http://librarysimplified.org/terms/rel/quality"
	MeasureRating     = "http://schema.org/ratingValue"
	MeasureDownloads  = "https://schema.org/UserDownloads"
	MeasurePageCount  = "https://schema.org/numberOfPages"
	MeasureAwards     = "http://librarysimplified.org/terms/rel/awards"
)

// Circulation event types.
const (
	EventDistributorTitleAdd      = "distributor_title_add"
	EventDistributorLicenseAdd    = "distributor_license_add"
	EventDistributorLicenseRemove = "distributor_license_remove"
	EventDistributorCheckin       = "distributor_check_in"
	EventDistributorCheckout      = "distributor_check_out"
	EventDistributorHoldPlace     = "distributor_hold_place"
	EventDistributorHoldRelease   = "distributor_hold_release"
)

// Coverage operations.
const (
	OperationSetEditionMetadata = "set-edition-metadata"
	OperationChooseCover        = "choose-cover"
	OperationApplyMetadata      = ""
)
