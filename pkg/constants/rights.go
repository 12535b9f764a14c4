package constants

// Rights URIs.
const (
	RightsPublicDomainUSA   = "http://librarysimplified.org/terms/rights-status/public-domain-usa"
	RightsCC0               = "https://creativecommons.org/publicdomain/zero/1.0/"
	RightsCCBy              = "http://creativecommons.org/licenses/by/4.0/"
	RightsCCBySA            = "https://creativecommons.org/licenses/by-sa/4.0"
	RightsCCByND            = "https://creativecommons.org/licenses/by-nd/4.0"
	RightsCCByNC            = "https://creativecommons.org/licenses/by-nc/4.0"
	RightsCCByNCSA          = "https://creativecommons.org/licenses/by-nc-sa/4.0"
	RightsCCByNCND          = "https://creativecommons.org/licenses/by-nc-nd/4.0"
	RightsGenericOpenAccess = "http://librarysimplified.org/terms/rights-status/generic-open-access"
	RightsInCopyright       = "http://librarysimplified.org/terms/rights-status/in-copyright"
	RightsUnknown           = "http://librarysimplified.org/terms/rights-status/unknown"
)

var openAccessRights = set(
	RightsPublicDomainUSA,
	RightsCC0,
	RightsCCBy,
	RightsCCBySA,
	RightsCCByND,
	RightsCCByNC,
	RightsCCByNCSA,
	RightsCCByNCND,
	RightsGenericOpenAccess,
)

// IsOpenAccessRights reports whether uri grants open access.
func IsOpenAccessRights(uri string) bool { return openAccessRights[uri] }

// dataSourceDefaultRights maps a data source to the rights status of
// everything it distributes, when the feed does not say.
var dataSourceDefaultRights = map[string]string{
	DataSourceGutenberg:       RightsPublicDomainUSA,
	DataSourcePlympton:        RightsCCByNC,
	DataSourceStandardEbooks:  RightsCC0,
	DataSourceUnglueIt:        RightsCCByNCND,
	DataSourceFeedbooks:       RightsGenericOpenAccess,
	DataSourceInternetArchive: RightsGenericOpenAccess,
}

// DefaultRightsFor returns the default rights URI for a data source, or "".
func DefaultRightsFor(dataSource string) string {
	return dataSourceDefaultRights[dataSource]
}

// DRM schemes.
const (
	DRMNone  = "http://opds-spec.org/drm/none"
	DRMAdobe = "application/vnd.adobe.adept+xml"
)
