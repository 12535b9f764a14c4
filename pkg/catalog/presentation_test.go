package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/catalog/memory"
	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/workid"
)

type fixture struct {
	ctx        context.Context
	store      *memory.Store
	identifier *catalog.Identifier
	edition    *catalog.Edition
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	id, _, err := s.FindOrCreateIdentifier(ctx, constants.IdentifierGutenberg, "2701")
	require.NoError(t, err)
	e, _, err := s.FindOrCreateEdition(ctx, constants.DataSourceGutenberg, id.ID)
	require.NoError(t, err)
	return &fixture{ctx: ctx, store: s, identifier: id, edition: e}
}

func (f *fixture) contribute(t *testing.T, sortName, role string) *catalog.Contributor {
	t.Helper()
	c, _, err := f.store.FindOrCreateContributor(f.ctx, catalog.ContributorLookup{SortName: sortName})
	require.NoError(t, err)
	_, _, err = f.store.AddContribution(f.ctx, f.edition.ID, c.ID, role, f.edition.DataSource)
	require.NoError(t, err)
	return c
}

func TestAuthorContributors(t *testing.T) {
	t.Run("lone contributor counts whatever the role", func(t *testing.T) {
		f := newFixture(t)
		illustrator := f.contribute(t, "Kent, Rockwell", constants.RoleIllustrator)
		authors, err := catalog.AuthorContributors(f.ctx, f.store, f.edition)
		require.NoError(t, err)
		require.Len(t, authors, 1)
		assert.Equal(t, illustrator.ID, authors[0].ID)
	})

	t.Run("lone contributor credited by two sources", func(t *testing.T) {
		f := newFixture(t)
		illustrator := f.contribute(t, "Kent, Rockwell", constants.RoleIllustrator)
		_, created, err := f.store.AddContribution(f.ctx, f.edition.ID, illustrator.ID, constants.RoleIllustrator, constants.DataSourceOverdrive)
		require.NoError(t, err)
		require.True(t, created)

		authors, err := catalog.AuthorContributors(f.ctx, f.store, f.edition)
		require.NoError(t, err)
		require.Len(t, authors, 1)
		assert.Equal(t, illustrator.ID, authors[0].ID)
	})

	t.Run("primary author first then others by sort name", func(t *testing.T) {
		f := newFixture(t)
		zed := f.contribute(t, "Zed, Anne", constants.RoleAuthor)
		primary := f.contribute(t, "Melville, Herman", constants.RolePrimaryAuthor)
		abel := f.contribute(t, "Abel, Sam", constants.RoleAuthor)
		f.contribute(t, "Kent, Rockwell", constants.RoleIllustrator)

		authors, err := catalog.AuthorContributors(f.ctx, f.store, f.edition)
		require.NoError(t, err)
		ids := []string{}
		for _, a := range authors {
			ids = append(ids, a.ID)
		}
		assert.Equal(t, []string{primary.ID, abel.ID, zed.ID}, ids)
	})

	t.Run("falls back to substitute roles", func(t *testing.T) {
		f := newFixture(t)
		editor := f.contribute(t, "Editor, Ed", constants.RoleEditor)
		f.contribute(t, "Kent, Rockwell", constants.RoleIllustrator)
		authors, err := catalog.AuthorContributors(f.ctx, f.store, f.edition)
		require.NoError(t, err)
		require.Len(t, authors, 1)
		assert.Equal(t, editor.ID, authors[0].ID)
	})
}

func TestCalculateAuthor(t *testing.T) {
	tests := []struct {
		name       string
		authors    []*catalog.Contributor
		author     string
		sortAuthor string
	}{
		{
			name:       "none",
			author:     constants.UnknownAuthor,
			sortAuthor: constants.UnknownAuthor,
		},
		{
			name:       "derived display name",
			authors:    []*catalog.Contributor{{SortName: "Melville, Herman"}},
			author:     "Herman Melville",
			sortAuthor: "Melville, Herman",
		},
		{
			name: "ordered by family name",
			authors: []*catalog.Contributor{
				{SortName: "Wells, H. G.", DisplayName: "H.G. Wells"},
				{SortName: "Austen, Jane"},
			},
			author:     "Jane Austen, H.G. Wells",
			sortAuthor: "Austen, Jane ; Wells, H. G.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			author, sortAuthor := catalog.CalculateAuthor(tt.authors)
			assert.Equal(t, tt.author, author)
			assert.Equal(t, tt.sortAuthor, sortAuthor)
		})
	}
}

func TestCalculatePresentation(t *testing.T) {
	f := newFixture(t)
	f.edition.Title = "The Whale"
	f.edition.Medium = constants.MediumBook
	f.contribute(t, "Melville, Herman", constants.RolePrimaryAuthor)

	changed, err := catalog.CalculatePresentation(f.ctx, f.store, f.edition, catalog.DefaultPresentationPolicy())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Herman Melville", f.edition.Author)
	assert.Equal(t, "Melville, Herman", f.edition.SortAuthor)
	assert.Equal(t, "Whale, The", f.edition.SortTitle)
	assert.Equal(t, workid.ForTitleAndAuthor("The Whale", "Melville, Herman", "book"), f.edition.PermanentWorkID)

	_, err = f.store.Coverage(f.ctx, f.identifier.ID, f.edition.DataSource, constants.OperationSetEditionMetadata)
	assert.NoError(t, err)
	_, err = f.store.Coverage(f.ctx, f.identifier.ID, f.edition.DataSource, constants.OperationChooseCover)
	assert.NoError(t, err)

	changed, err = catalog.CalculatePresentation(f.ctx, f.store, f.edition, catalog.DefaultPresentationPolicy())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestChooseCover(t *testing.T) {
	f := newFixture(t)
	other, _, err := f.store.FindOrCreateIdentifier(f.ctx, constants.IdentifierISBN, "9780142437247")
	require.NoError(t, err)
	_, err = f.store.AddEquivalency(f.ctx, f.identifier.ID, other.ID, constants.DataSourceOCLC, 1)
	require.NoError(t, err)

	_, cover, err := catalog.AddLink(f.ctx, f.store, other, constants.DataSourceOCLC, catalog.LinkSpec{
		Rel:       constants.RelImage,
		Href:      "http://covers.example/moby.jpg",
		MediaType: constants.MediaJPEG,
		Content:   "jpeg-bytes",
	})
	require.NoError(t, err)
	rep, err := f.store.Representation(f.ctx, cover.RepresentationID)
	require.NoError(t, err)
	rep.ImageHeight = 250
	require.NoError(t, f.store.UpdateRepresentation(f.ctx, rep))

	require.NoError(t, catalog.ChooseCover(f.ctx, f.store, f.edition))
	assert.Equal(t, cover.ID, f.edition.CoverResourceID)
	assert.Equal(t, "http://covers.example/moby.jpg", f.edition.CoverFullURL)
	assert.Equal(t, "http://covers.example/moby.jpg", f.edition.CoverThumbnailURL)
}

func TestSetCoverUsesThumbnail(t *testing.T) {
	f := newFixture(t)
	_, cover, err := catalog.AddLink(f.ctx, f.store, f.identifier, f.edition.DataSource, catalog.LinkSpec{
		Rel: constants.RelImage, Href: "http://covers.example/big.png", MediaType: constants.MediaPNG, Content: "png",
	})
	require.NoError(t, err)
	rep, err := f.store.Representation(f.ctx, cover.RepresentationID)
	require.NoError(t, err)
	rep.ImageHeight = 1200
	rep.MirrorURL = "http://mirror.example/big.png"
	require.NoError(t, f.store.UpdateRepresentation(f.ctx, rep))

	thumb, _, err := f.store.FindOrCreateRepresentation(f.ctx, "http://mirror.example/big.thumb.png")
	require.NoError(t, err)
	thumb.ThumbnailOfID = rep.ID
	require.NoError(t, f.store.UpdateRepresentation(f.ctx, thumb))

	require.NoError(t, catalog.SetCover(f.ctx, f.store, f.edition, cover))
	assert.Equal(t, "http://mirror.example/big.png", f.edition.CoverFullURL)
	assert.Equal(t, "http://mirror.example/big.thumb.png", f.edition.CoverThumbnailURL)
}
