package mirror

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/catalog/memory"
	"github.com/agentstation/metalayer/pkg/constants"
)

type stubFetcher struct {
	responses []*Response
	err       error
	requests  []Request
}

func (f *stubFetcher) Fetch(_ context.Context, req Request) (*Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func TestGetCachesAndRevalidates(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	fetcher := &stubFetcher{responses: []*Response{
		{StatusCode: 200, MediaType: "application/epub+zip; charset=binary", Content: []byte("book"), ETag: `"v1"`},
		{StatusCode: 304},
	}}

	rep, err := Get(ctx, store, fetcher, "http://x/book.epub", AnyAge)
	require.NoError(t, err)
	assert.Equal(t, 200, rep.StatusCode)
	assert.Equal(t, constants.MediaEPUB, rep.MediaType)

	// Cached: no second request.
	_, err = Get(ctx, store, fetcher, "http://x/book.epub", time.Hour)
	require.NoError(t, err)
	assert.Len(t, fetcher.requests, 1)

	// Max age zero forces a conditional refetch that keeps content on 304.
	rep, err = Get(ctx, store, fetcher, "http://x/book.epub", 0)
	require.NoError(t, err)
	require.Len(t, fetcher.requests, 2)
	assert.Equal(t, `"v1"`, fetcher.requests[1].ETag)
	assert.Equal(t, 304, rep.StatusCode)
	assert.Equal(t, []byte("book"), rep.Content)
}

func TestGetRecordsFetchException(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	rep, err := Get(ctx, store, &stubFetcher{err: errors.New("connection refused")}, "http://x/cover.jpg", AnyAge)
	require.NoError(t, err)
	assert.Equal(t, "connection refused", rep.FetchException)

	stored, err := store.Representation(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, "connection refused", stored.FetchException)
}

type failingUploader struct{ err error }

func (failingUploader) BookURL(*catalog.Identifier, string, string, string) string { return "" }
func (failingUploader) CoverImageURL(string, *catalog.Identifier, string) string { return "" }
func (u failingUploader) Upload(context.Context, *catalog.Representation, string) error {
	return u.err
}

func TestMirrorRecordsOutcome(t *testing.T) {
	ctx := context.Background()
	rep := &catalog.Representation{URL: "http://x/cover.jpg"}

	ok := Mirror(ctx, failingUploader{err: errors.New("bucket gone")}, rep, "http://mirror/cover.jpg")
	assert.False(t, ok)
	assert.Equal(t, "bucket gone", rep.MirrorException)
	assert.Empty(t, rep.MirrorURL)

	ok = Mirror(ctx, failingUploader{}, rep, "http://mirror/cover.jpg")
	assert.True(t, ok)
	assert.Equal(t, "http://mirror/cover.jpg", rep.MirrorURL)
	assert.Empty(t, rep.MirrorException)
	assert.NotNil(t, rep.MirroredAt)
}

func TestMinIOUploaderURLs(t *testing.T) {
	u := &MinIOUploader{bucket: "books", base: "http://localhost:9000/books/"}
	id := &catalog.Identifier{Type: constants.IdentifierGutenberg, Value: "2701"}

	assert.Equal(t, "http://localhost:9000/books/books/Gutenberg/Gutenberg%20ID/2701/Moby%20Dick.epub",
		u.BookURL(id, "Gutenberg", "Moby Dick", "epub"))
	assert.Equal(t, "http://localhost:9000/books/covers/Gutenberg/Gutenberg%20ID/2701/cover.jpg",
		u.CoverImageURL("Gutenberg", id, "cover.jpg"))

	err := u.Upload(context.Background(), &catalog.Representation{}, "http://elsewhere/x")
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "cover.jpg", Filename("http://x/a/b/cover.jpg?size=large"))
	assert.Equal(t, "book.epub", Filename("http://x/book.epub"))
}

func TestImageScaler(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 600))
	for x := 0; x < 400; x++ {
		img.Set(x, x, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	thumb, err := ImageScaler{}.Scale(context.Background(), buf.Bytes(), constants.MaxThumbnailWidth, constants.MaxThumbnailHeight)
	require.NoError(t, err)
	assert.Equal(t, constants.MediaPNG, thumb.MediaType)
	assert.LessOrEqual(t, thumb.Width, constants.MaxThumbnailWidth)
	assert.LessOrEqual(t, thumb.Height, constants.MaxThumbnailHeight)
	assert.Equal(t, 200, thumb.Width)
	assert.Equal(t, 300, thumb.Height)
	assert.True(t, thumb.Resized)

	_, err = ImageScaler{}.Scale(context.Background(), []byte("not an image"), 200, 300)
	assert.Error(t, err)
}
