package metadata_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/catalog/memory"
	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/metadata"
)

func TestNewLinkData(t *testing.T) {
	tests := []struct {
		name    string
		link    metadata.LinkData
		wantErr string
	}{
		{name: "href", link: metadata.LinkData{Rel: constants.RelImage, Href: "http://example.com/cover.png"}},
		{name: "inline content", link: metadata.LinkData{Rel: constants.RelDescription, Content: "A whale of a tale."}},
		{name: "missing rel", link: metadata.LinkData{Href: "http://example.com/"}, wantErr: "rel"},
		{name: "neither href nor content", link: metadata.LinkData{Rel: constants.RelImage}, wantErr: "href"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, err := metadata.NewLinkData(tt.link)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.link, *link)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
			var verr *errors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantErr, verr.Field)
		})
	}
}

func TestNewMeasurementData(t *testing.T) {
	m, err := metadata.NewMeasurementData(constants.MeasurePopularity, "42", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 42.0, m.Value)
	assert.Equal(t, 1.0, m.Weight)
	assert.False(t, m.TakenAt.IsZero())

	_, err = metadata.NewMeasurementData("", 1, 1, nil)
	assert.True(t, errors.IsValidationError(err))

	_, err = metadata.NewMeasurementData(constants.MeasureRating, nil, 1, nil)
	assert.True(t, errors.IsValidationError(err))

	_, err = metadata.NewMeasurementData(constants.MeasureRating, "five stars", 1, nil)
	assert.True(t, errors.IsValidationError(err))
}

func TestNewSubjectDataTrims(t *testing.T) {
	s := metadata.NewSubjectData(constants.SubjectTag, "  whales ", " Whales\n", 100)
	assert.Equal(t, "whales", s.Identifier)
	assert.Equal(t, "Whales", s.Name)
	assert.Equal(t, metadata.SubjectKey{Type: constants.SubjectTag, Identifier: "whales", Name: "Whales", Weight: 100}, s.Key())
}

func TestContributorDataApply(t *testing.T) {
	t.Run("fills gaps and never blanks", func(t *testing.T) {
		dest := &catalog.Contributor{SortName: "Melville, Herman", Biography: "Sailor."}
		data := metadata.ContributorData{
			DisplayName: "Herman Melville",
			VIAF:        "27068555",
			Aliases:     []string{"Melville, H."},
			Extra:       map[string]any{"born": 1819},
		}
		assert.True(t, data.Apply(dest))
		assert.Equal(t, "Melville, Herman", dest.SortName)
		assert.Equal(t, "Herman Melville", dest.DisplayName)
		assert.Equal(t, "27068555", dest.VIAF)
		assert.Equal(t, "Sailor.", dest.Biography)
		assert.Equal(t, []string{"Melville, H."}, dest.Aliases)
		assert.Equal(t, 1819, dest.Extra["born"])

		assert.False(t, data.Apply(dest), "applying the same data twice changes nothing")
	})

	t.Run("aliases are appended without duplicates", func(t *testing.T) {
		dest := &catalog.Contributor{SortName: "Twain, Mark", Aliases: []string{"Clemens, S."}}
		data := metadata.ContributorData{SortName: "Clemens, Samuel", Aliases: []string{"Twain, Mark", "Clemens, S."}}
		assert.True(t, data.Apply(dest))
		assert.Equal(t, "Clemens, Samuel", dest.SortName)
		assert.Equal(t, []string{"Clemens, S.", "Twain, Mark"}, dest.Aliases)
	})

	t.Run("extra keys are not overwritten", func(t *testing.T) {
		dest := &catalog.Contributor{SortName: "Austen, Jane", Extra: map[string]any{"born": 1775}}
		data := metadata.ContributorData{Extra: map[string]any{"born": 1800, "died": 1817}}
		data.Apply(dest)
		assert.Equal(t, 1775, dest.Extra["born"])
		assert.Equal(t, 1817, dest.Extra["died"])
	})
}

type stubCanonicalizer struct {
	answers map[string]string
	calls   []string
}

func (s *stubCanonicalizer) CanonicalizeAuthorName(_ context.Context, identifier *catalog.Identifier, displayName string) (string, error) {
	key := ""
	if identifier != nil {
		key = identifier.Value
	}
	s.calls = append(s.calls, key)
	return s.answers[key], nil
}

func TestFindSortName(t *testing.T) {
	ctx := context.Background()

	t.Run("existing contributor with the same display name", func(t *testing.T) {
		store := memory.New()
		existing, _, err := store.FindOrCreateContributor(ctx, catalog.ContributorLookup{SortName: "Melville, Herman"})
		require.NoError(t, err)
		existing.DisplayName = "Herman Melville"
		require.NoError(t, store.UpdateContributor(ctx, existing))

		c := metadata.NewContributorData("", "Herman Melville")
		canon := &stubCanonicalizer{}
		ok, err := c.FindSortName(ctx, store, nil, canon)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Melville, Herman", c.SortName)
		assert.Empty(t, canon.calls)
	})

	t.Run("canonicalizer per ISBN then without identifier", func(t *testing.T) {
		store := memory.New()
		canon := &stubCanonicalizer{answers: map[string]string{"": "Achebe, Chinua"}}
		ids := []metadata.IdentifierData{
			metadata.NewIdentifierData(constants.IdentifierOverdrive, "abc"),
			metadata.NewIdentifierData(constants.IdentifierISBN, "9780385474542"),
		}
		c := metadata.NewContributorData("", "Chinua Achebe")
		ok, err := c.FindSortName(ctx, store, ids, canon)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Achebe, Chinua", c.SortName)
		assert.Equal(t, []string{"9780385474542", ""}, canon.calls)
	})

	t.Run("no display name", func(t *testing.T) {
		c := metadata.NewContributorData("", "")
		_, err := c.FindSortName(ctx, memory.New(), nil, nil)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("no canonicalizer", func(t *testing.T) {
		c := metadata.NewContributorData("", "Nobody Known")
		ok, err := c.FindSortName(ctx, memory.New(), nil, nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestNewContributorDataDefaultsRole(t *testing.T) {
	c := metadata.NewContributorData("Doe, Jane", "")
	assert.Equal(t, []string{constants.RoleAuthor}, c.Roles)
	assert.True(t, c.Registrable())
	assert.False(t, (&metadata.ContributorData{DisplayName: "Jane Doe"}).Registrable())
}

func TestCirculationDataLinks(t *testing.T) {
	id := metadata.NewIdentifierData(constants.IdentifierGutenberg, "2701")
	raw := []metadata.LinkData{
		{Rel: constants.RelOpenAccessDownload, Href: "http://example.com/moby.epub", MediaType: constants.MediaEPUB},
		{Rel: constants.RelOpenAccessDownload, Href: "http://example.com/moby.epub", MediaType: constants.MediaEPUB},
		{Rel: constants.RelImage, Href: "http://example.com/cover.png", MediaType: constants.MediaPNG},
		{Rel: constants.RelBorrow, Href: "http://example.com/borrow"},
	}

	t.Run("default rights from source", func(t *testing.T) {
		c := metadata.NewCirculationData(metadata.CirculationData{
			DataSource:        constants.DataSourceGutenberg,
			PrimaryIdentifier: &id,
			Links:             raw,
		})
		assert.Equal(t, constants.RightsPublicDomainUSA, c.DefaultRightsURI)
		for _, l := range c.Links {
			assert.True(t, constants.IsCirculationRel(l.Rel), l.Rel)
		}
		assert.Len(t, c.Links, 3)
		require.Len(t, c.Formats, 1, "one format per open-access href")
		assert.Equal(t, constants.MediaEPUB, c.Formats[0].ContentType)
		assert.Equal(t, constants.DRMNone, c.Formats[0].DRMScheme)
		assert.Equal(t, constants.RightsPublicDomainUSA, c.Formats[0].RightsURI)
		assert.True(t, c.HasOpenAccessLink())
	})

	t.Run("unknown rights on an open-access link become generic open access", func(t *testing.T) {
		c := metadata.NewCirculationData(metadata.CirculationData{
			DataSource:        constants.DataSourceOverdrive,
			PrimaryIdentifier: &id,
			Links:             raw[:1],
		})
		assert.Equal(t, constants.RightsUnknown, c.DefaultRightsURI)
		require.Len(t, c.Formats, 1)
		assert.Equal(t, constants.RightsGenericOpenAccess, c.Formats[0].RightsURI)
	})

	t.Run("existing format keeps its rights", func(t *testing.T) {
		link := raw[0]
		c := metadata.NewCirculationData(metadata.CirculationData{
			DataSource:        constants.DataSourceGutenberg,
			PrimaryIdentifier: &id,
			Links:             raw,
			Formats:           []metadata.FormatData{metadata.NewFormatData(constants.MediaEPUB, constants.DRMNone, &link, constants.RightsCC0)},
		})
		require.Len(t, c.Formats, 1)
		assert.Equal(t, constants.RightsCC0, c.Formats[0].RightsURI)
	})

	t.Run("explicit default rights win", func(t *testing.T) {
		c := metadata.NewCirculationData(metadata.CirculationData{
			DataSource:       constants.DataSourceGutenberg,
			DefaultRightsURI: constants.RightsInCopyright,
		})
		assert.Equal(t, constants.RightsInCopyright, c.DefaultRightsURI)
		assert.False(t, c.HasCounts())
	})
}

func TestMetadataNew(t *testing.T) {
	primary := metadata.NewIdentifierData(constants.IdentifierGutenberg, "2701")
	m := metadata.New(metadata.Metadata{
		DataSource:        constants.DataSourceGutenberg,
		Title:             "Moby Dick",
		Language:          "English",
		PrimaryIdentifier: &primary,
		Links: []metadata.LinkData{
			{Rel: constants.RelImage, Href: "http://example.com/cover.png"},
			{Rel: constants.RelOpenAccessDownload, Href: "http://example.com/moby.epub"},
			{Rel: constants.RelDescription, Content: "Call me Ishmael."},
		},
		Contributors: []metadata.ContributorData{{SortName: "Melville, Herman"}},
	})

	assert.Equal(t, "eng", m.Language)
	assert.Equal(t, constants.MediumBook, m.Medium)
	assert.Equal(t, []metadata.IdentifierData{primary}, m.Identifiers)
	require.Len(t, m.Links, 2)
	for _, l := range m.Links {
		assert.True(t, constants.IsMetadataRel(l.Rel), l.Rel)
	}
	assert.Equal(t, []string{constants.RoleAuthor}, m.Contributors[0].Roles)

	again := metadata.New(*m)
	assert.Len(t, again.Identifiers, 1, "primary identifier is not added twice")
}

func TestPrimaryAuthor(t *testing.T) {
	m := metadata.New(metadata.Metadata{
		Contributors: []metadata.ContributorData{
			metadata.NewContributorData("Kent, Rockwell", "", constants.RoleIllustrator),
			metadata.NewContributorData("Doe, Jane", "", constants.RoleAuthor),
			metadata.NewContributorData("Melville, Herman", "", constants.RolePrimaryAuthor),
		},
	})
	require.NotNil(t, m.PrimaryAuthor())
	assert.Equal(t, "Melville, Herman", m.PrimaryAuthor().SortName)
	assert.Len(t, m.AuthorContributors(), 2)

	illustrated := metadata.New(metadata.Metadata{
		Contributors: []metadata.ContributorData{metadata.NewContributorData("Kent, Rockwell", "", constants.RoleIllustrator)},
	})
	assert.Nil(t, illustrated.PrimaryAuthor())
}

func TestMetadataUpdate(t *testing.T) {
	base := metadata.New(metadata.Metadata{
		Title:        "Moby Dick",
		Publisher:    "Harper",
		Contributors: []metadata.ContributorData{metadata.NewContributorData("Melville, Herman", "")},
	})
	base.Update(&metadata.Metadata{
		Title:        "Moby-Dick; or, The Whale",
		Contributors: []metadata.ContributorData{metadata.NewContributorData(constants.UnknownAuthor, "")},
	})
	assert.Equal(t, "Moby-Dick; or, The Whale", base.Title)
	assert.Equal(t, "Harper", base.Publisher)
	assert.Equal(t, "Melville, Herman", base.Contributors[0].SortName)

	base.Update(&metadata.Metadata{Contributors: []metadata.ContributorData{metadata.NewContributorData("Melville, H.", "")}})
	assert.Equal(t, "Melville, H.", base.Contributors[0].SortName)
}

func TestConsolidateIdentifiers(t *testing.T) {
	m := &metadata.Metadata{Identifiers: []metadata.IdentifierData{
		{Type: constants.IdentifierISBN, Identifier: "1", Weight: 0.2},
		{Type: constants.IdentifierOverdrive, Identifier: "x", Weight: 1},
		{Type: constants.IdentifierISBN, Identifier: "1", Weight: 0.6},
		{Type: constants.IdentifierISBN, Identifier: "1", Weight: 0.4},
	}}
	m.ConsolidateIdentifiers()
	assert.Equal(t, []metadata.IdentifierData{
		{Type: constants.IdentifierISBN, Identifier: "1", Weight: 0.4},
		{Type: constants.IdentifierOverdrive, Identifier: "x", Weight: 1},
	}, m.Identifiers)
}

func TestFromEdition(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	id, _, err := store.FindOrCreateIdentifier(ctx, constants.IdentifierGutenberg, "2701")
	require.NoError(t, err)
	edition, _, err := store.FindOrCreateEdition(ctx, constants.DataSourceGutenberg, id.ID)
	require.NoError(t, err)
	edition.Title = "Moby Dick"
	edition.Author = "Herman Melville"
	edition.SortAuthor = "Melville, Herman"

	m, err := metadata.FromEdition(ctx, store, edition)
	require.NoError(t, err)
	assert.Equal(t, "Moby Dick", m.Title)
	assert.True(t, m.PrimaryIdentifier.Matches(id))
	require.Len(t, m.Contributors, 1)
	assert.Equal(t, "Melville, Herman", m.Contributors[0].SortName)
	assert.Equal(t, []string{constants.RolePrimaryAuthor}, m.Contributors[0].Roles)

	edition.SortAuthor = constants.UnknownAuthor
	m, err = metadata.FromEdition(ctx, store, edition)
	require.NoError(t, err)
	assert.Empty(t, m.Contributors)

	// Two sources crediting one author yield one contributor.
	melville, _, err := store.FindOrCreateContributor(ctx, catalog.ContributorLookup{SortName: "Melville, Herman"})
	require.NoError(t, err)
	for _, source := range []string{constants.DataSourceGutenberg, constants.DataSourceOverdrive} {
		_, _, err := store.AddContribution(ctx, edition.ID, melville.ID, constants.RoleAuthor, source)
		require.NoError(t, err)
	}
	m, err = metadata.FromEdition(ctx, store, edition)
	require.NoError(t, err)
	require.Len(t, m.Contributors, 1)
	assert.Equal(t, "Melville, Herman", m.Contributors[0].SortName)
}

func TestPolicyByName(t *testing.T) {
	p, err := metadata.PolicyByName(metadata.PolicyLicenseSource)
	require.NoError(t, err)
	assert.True(t, p.Formats)
	assert.True(t, p.Rights)
	assert.True(t, p.Presentation.ChooseCover)

	p, err = metadata.PolicyByName(metadata.PolicyMetadataSource, metadata.WithForce(true))
	require.NoError(t, err)
	assert.True(t, p.Subjects)
	assert.False(t, p.Formats)
	assert.True(t, p.EvenIfNotApparentlyUpdated)

	p, err = metadata.PolicyByName(metadata.PolicyAppendOnly)
	require.NoError(t, err)
	assert.False(t, p.Identifiers || p.Subjects || p.Contributions || p.Links || p.Formats || p.Rights)

	_, err = metadata.PolicyByName("overwrite-everything")
	assert.True(t, errors.IsConfigError(err))
}
