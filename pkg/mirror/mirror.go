// Package mirror defines the content-fetch and mirroring collaborators
// used when copying open-access books and cover images into our own
// storage, plus the representation cache that sits in front of them.
package mirror

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/logging"
)

// Request is a single content fetch. ETag and LastModified make it conditional.
type Request struct {
	URL          string
	ETag         string
	LastModified string
}

// Response is what a Fetcher got back.
type Response struct {
	StatusCode   int
	MediaType    string
	Content      []byte
	ETag         string
	LastModified string
}

// Fetcher retrieves content over the network.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// Uploader copies representations into mirror storage.
type Uploader interface {
	// BookURL is where an open-access book is mirrored.
	BookURL(identifier *catalog.Identifier, source, title, extension string) string
	// CoverImageURL is where a cover image or thumbnail is mirrored.
	CoverImageURL(source string, identifier *catalog.Identifier, filename string) string
	// Upload stores the representation's content at url.
	Upload(ctx context.Context, rep *catalog.Representation, url string) error
}

// Scaler produces a bounded thumbnail of an image.
type Scaler interface {
	// Scale fits content inside maxWidth x maxHeight and returns the
	// encoded thumbnail, its media type and its dimensions.
	Scale(ctx context.Context, content []byte, maxWidth, maxHeight int) (*Thumbnail, error)
}

// Thumbnail is a scaled image.
type Thumbnail struct {
	Content   []byte
	MediaType string
	Width     int
	Height    int
	// Resized is false when the source already fit the bounds.
	Resized bool
}

// AnyAge accepts a cached representation however old it is.
const AnyAge time.Duration = -1

// Get returns the representation for url, fetching it unless a cached
// copy younger than maxAge exists. A maxAge of zero always refetches;
// AnyAge never does once something was fetched. Fetch failures are
// recorded on the representation, not returned.
func Get(ctx context.Context, store catalog.LinkStore, fetcher Fetcher, url string, maxAge time.Duration) (*catalog.Representation, error) {
	rep, _, err := store.FindOrCreateRepresentation(ctx, url)
	if err != nil {
		return nil, err
	}
	if fresh(rep, maxAge) {
		return rep, nil
	}
	if fetcher == nil {
		rep.FetchException = "no fetcher configured"
		return rep, store.UpdateRepresentation(ctx, rep)
	}

	req := Request{URL: url}
	if len(rep.Content) > 0 {
		req.ETag = rep.ETag
		req.LastModified = rep.LastModified
	}

	logger := logging.FromContext(ctx)
	now := utc.Now()
	rep.FetchedAt = &now
	resp, err := fetcher.Fetch(ctx, req)
	if err != nil {
		logger.Warn().Err(err).Str("url", url).Msg("fetch failed")
		rep.FetchException = err.Error()
		return rep, store.UpdateRepresentation(ctx, rep)
	}

	rep.FetchException = ""
	rep.StatusCode = resp.StatusCode
	if resp.StatusCode != 304 {
		rep.Content = resp.Content
		if resp.MediaType != "" {
			rep.MediaType = mediaType(resp.MediaType)
		}
		rep.ETag = resp.ETag
		rep.LastModified = resp.LastModified
	}
	logger.Debug().Str("url", url).Int("status", resp.StatusCode).Msg("fetched representation")
	return rep, store.UpdateRepresentation(ctx, rep)
}

func fresh(rep *catalog.Representation, maxAge time.Duration) bool {
	if rep.FetchedAt == nil || rep.FetchException != "" || maxAge == 0 {
		return false
	}
	if rep.StatusCode < 200 || rep.StatusCode >= 400 {
		return false
	}
	if maxAge < 0 {
		return true
	}
	return time.Since(rep.FetchedAt.Time) < maxAge
}

// mediaType drops parameters such as charset.
func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(mt)
}

// Mirror uploads rep to url and records the outcome on rep. Upload
// failures are recorded as MirrorException and returned as false.
func Mirror(ctx context.Context, uploader Uploader, rep *catalog.Representation, url string) bool {
	err := uploader.Upload(ctx, rep, url)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("url", url).Msg("mirror failed")
		rep.MirrorException = err.Error()
		return false
	}
	now := utc.Now()
	rep.MirrorURL = url
	rep.MirroredAt = &now
	rep.MirrorException = ""
	return true
}

// Filename is the last path segment of a URL, used to name mirrored covers.
func Filename(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return path.Base(url)
}
