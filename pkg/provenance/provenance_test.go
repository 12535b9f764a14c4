package provenance

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	tr := NewTracker(true)
	first := utc.New(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	second := utc.New(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	tr.Track(ResourceEdition, "e1", "title", Provenance{Source: "Overdrive", Value: "Moby Dick", Timestamp: first})
	tr.Track(ResourceEdition, "e1", "title", Provenance{Source: "OCLC Classify", Value: "Moby-Dick", PreviousValue: "Moby Dick", Timestamp: second})
	tr.Track(ResourceEdition, "e1", "publisher", Provenance{Source: "Overdrive", Value: "Harper"})
	tr.Track(ResourceEdition, "e2", "title", Provenance{Source: "Overdrive", Value: "Emma"})

	history := tr.FindByField(ResourceEdition, "e1", "title")
	require.Len(t, history, 2)
	assert.Equal(t, "title", history[0].Field)

	fields := tr.FindByResource(ResourceEdition, "e1")
	assert.Len(t, fields, 2)
	assert.False(t, fields["publisher"][0].Timestamp.IsZero())

	report := GenerateReport(tr.Map())
	require.Contains(t, report.Resources, "edition:e1")
	title := report.Resources["edition:e1"].Fields["title"]
	assert.Equal(t, "Moby-Dick", title.Current.Value)
	assert.Equal(t, []string{"OCLC Classify", "Overdrive"}, title.Sources)
	assert.Contains(t, report.String(), "title: Moby-Dick (from OCLC Classify)")

	tr.Clear()
	assert.Empty(t, tr.Map())
}

func TestDisabledTracker(t *testing.T) {
	tr := NewTracker(false)
	tr.Track(ResourceEdition, "e1", "title", Provenance{Source: "Overdrive", Value: "Emma"})
	assert.Empty(t, tr.FindByField(ResourceEdition, "e1", "title"))
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "provenance.yaml")

	f, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, f)

	tr := NewTracker(true)
	tr.Track(ResourceLicensePool, "p1", "licenses_owned", Provenance{Source: "Overdrive", Value: 3})
	require.NoError(t, Save(path, tr.Map()))

	f, err = Load(path)
	require.NoError(t, err)
	require.NotNil(t, f)
	history := f.Provenance["license_pool:p1:licenses_owned"]
	require.Len(t, history, 1)
	assert.Equal(t, "Overdrive", history[0].Source)
}
