package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelationSets(t *testing.T) {
	assert.True(t, IsCirculationRel(RelOpenAccessDownload))
	assert.True(t, IsCirculationRel(RelCirculationManifest))
	assert.False(t, IsCirculationRel(RelImage))

	assert.True(t, IsMetadataRel(RelImage))
	assert.True(t, IsMetadataRel(RelDescription))
	assert.False(t, IsMetadataRel(RelBorrow))

	assert.True(t, IsMirroredRel(RelThumbnailImage))
	assert.False(t, IsMirroredRel(RelDescription))
}

func TestWorkIDTag(t *testing.T) {
	tests := map[string]string{
		MediumBook:       "book",
		MediumAudio:      "book",
		MediumPeriodical: "book",
		MediumMusic:      "music",
		MediumVideo:      "movie",
		MediumImage:      "image",
		MediumCourseware: "courseware",
		"Hologram":       "book",
	}
	for medium, want := range tests {
		assert.Equal(t, want, WorkIDTag(medium), medium)
	}
	assert.False(t, IsKnownMedium("Hologram"))
}

func TestRights(t *testing.T) {
	assert.True(t, IsOpenAccessRights(RightsGenericOpenAccess))
	assert.False(t, IsOpenAccessRights(RightsInCopyright))
	assert.False(t, IsOpenAccessRights(RightsUnknown))
	assert.Equal(t, RightsPublicDomainUSA, DefaultRightsFor(DataSourceGutenberg))
	assert.Empty(t, DefaultRightsFor(DataSourceOverdrive))
}

func TestMediaTypes(t *testing.T) {
	assert.True(t, IsBookMediaType(MediaEPUB))
	assert.False(t, IsBookMediaType(MediaPNG))
	assert.True(t, IsMirrorableMediaType(MediaPNG))
	assert.False(t, IsMirrorableMediaType(MediaHTML))
	assert.Equal(t, ".epub", FileExtension(MediaEPUB))
	assert.Equal(t, "", FileExtension("application/x-unknown"))
}
