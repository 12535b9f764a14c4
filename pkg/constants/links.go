package constants

// Link relations.
const (
	RelOpenAccessDownload     = "http://opds-spec.org/acquisition/open-access"
	RelGenericOPDSAcquisition = "http://opds-spec.org/acquisition"
	RelBorrow                 = "http://opds-spec.org/acquisition/borrow"
	RelSample                 = "http://opds-spec.org/acquisition/sample"
	RelDRMEncryptedDownload   = "http://opds-spec.org/acquisition/"
	RelCirculationManifest    = "http://librarysimplified.org/terms/rel/circulation-manifest"
	RelImage                  = "http://opds-spec.org/image"
	RelThumbnailImage         = "http://opds-spec.org/image/thumbnail"
	RelIllustration           = "http://librarysimplified.org/terms/rel/illustration"
	RelReview                 = "http://schema.org/Review"
	RelDescription            = "http://schema.org/description"
	RelShortDescription       = "http://librarysimplified.org/terms/rel/short-description"
	RelAuthor                 = "http://schema.org/author"
	RelAlternate              = "alternate"
	RelCanonical              = "http://schema.org/sameAs"
)

// circulationRels are relations that describe how a title is delivered.
var circulationRels = set(
	RelOpenAccessDownload,
	RelDRMEncryptedDownload,
	RelBorrow,
	RelGenericOPDSAcquisition,
	RelCirculationManifest,
)

// metadataRels are relations that describe the title itself.
var metadataRels = set(
	RelCanonical,
	RelImage,
	RelThumbnailImage,
	RelIllustration,
	RelReview,
	RelDescription,
	RelShortDescription,
	RelAuthor,
	RelAlternate,
	RelSample,
)

// mirroredRels are relations whose content is copied to our own storage.
var mirroredRels = set(
	RelOpenAccessDownload,
	RelGenericOPDSAcquisition,
	RelImage,
	RelThumbnailImage,
)

// IsCirculationRel reports whether rel belongs on a license pool.
func IsCirculationRel(rel string) bool { return circulationRels[rel] }

// IsMetadataRel reports whether rel belongs on an edition.
func IsMetadataRel(rel string) bool { return metadataRels[rel] }

// IsMirroredRel reports whether content behind rel is mirrored.
func IsMirroredRel(rel string) bool { return mirroredRels[rel] }

// Media types.
const (
	MediaEPUB      = "application/epub+zip"
	MediaPDF       = "application/pdf"
	MediaMOBI      = "application/x-mobipocket-ebook"
	MediaAudiobook = "application/audiobook+json"
	MediaPNG       = "image/png"
	MediaJPEG      = "image/jpeg"
	MediaGIF       = "image/gif"
	MediaSVG       = "image/svg+xml"
	MediaText      = "text/plain"
	MediaHTML      = "text/html"
	MediaOctet     = "application/octet-stream"
)

var bookMediaTypes = set(MediaEPUB, MediaPDF, MediaMOBI, MediaAudiobook)

var imageMediaTypes = set(MediaPNG, MediaJPEG, MediaGIF, MediaSVG)

// IsBookMediaType reports whether mediaType is a recognized book format.
func IsBookMediaType(mediaType string) bool { return bookMediaTypes[mediaType] }

// IsImageMediaType reports whether mediaType is a recognized image format.
func IsImageMediaType(mediaType string) bool { return imageMediaTypes[mediaType] }

// IsMirrorableMediaType reports whether content of mediaType may be mirrored.
func IsMirrorableMediaType(mediaType string) bool {
	return bookMediaTypes[mediaType] || imageMediaTypes[mediaType]
}

// FileExtension returns a filename extension (with dot) for mediaType.
func FileExtension(mediaType string) string {
	switch mediaType {
	case MediaEPUB:
		return ".epub"
	case MediaPDF:
		return ".pdf"
	case MediaMOBI:
		return ".mobi"
	case MediaAudiobook:
		return ".audiobook"
	case MediaPNG:
		return ".png"
	case MediaJPEG:
		return ".jpg"
	case MediaGIF:
		return ".gif"
	case MediaSVG:
		return ".svg"
	case MediaText:
		return ".txt"
	case MediaHTML:
		return ".html"
	}
	return ""
}

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
