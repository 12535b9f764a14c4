package measurement

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
)

func measure(source, quantity string, value float64) *catalog.Measurement {
	return &catalog.Measurement{DataSource: source, Quantity: quantity, Value: value, Weight: 1, IsMostRecent: true}
}

func TestNormalizePercentileRoundTrip(t *testing.T) {
	n, err := New()
	require.NoError(t, err)

	tests := []struct {
		name     string
		source   string
		quantity string
		index    int
	}{
		{"overdrive popularity", constants.DataSourceOverdrive, constants.MeasurePopularity, 95},
		{"overdrive popularity low", constants.DataSourceOverdrive, constants.MeasurePopularity, 3},
		{"gutenberg downloads", constants.DataSourceGutenberg, constants.MeasureDownloads, 99},
		{"amazon sales rank", constants.DataSourceAmazon, constants.MeasurePopularity, 42},
	}
	tables := DefaultTables()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tables.Popularity[tt.source]
			if tt.quantity == constants.MeasureDownloads {
				d = tables.Downloads[tt.source]
			}
			m := measure(tt.source, tt.quantity, d[tt.index])
			v, ok := n.Normalize(m)
			require.True(t, ok)
			assert.InDelta(t, float64(tt.index)*0.01, v, 1e-12)
			require.NotNil(t, m.Normalized)
		})
	}
}

func TestNormalize(t *testing.T) {
	n, err := New()
	require.NoError(t, err)

	v, ok := n.Normalize(measure(constants.DataSourceOverdrive, constants.MeasureRating, 4))
	require.True(t, ok)
	assert.InDelta(t, 0.75, v, 1e-12)

	v, ok = n.Normalize(measure(constants.DataSourceNovelist, constants.MeasureRating, 4))
	require.True(t, ok)
	assert.InDelta(t, 0.8, v, 1e-12)

	v, ok = n.Normalize(measure(constants.DataSourceMetadataWrangler, constants.MeasureQuality, 0.42))
	require.True(t, ok)
	assert.InDelta(t, 0.42, v, 1e-12)

	_, ok = n.Normalize(measure(constants.DataSourceOCLC, constants.MeasurePopularity, 100))
	assert.False(t, ok, "unknown source is not normalizable")

	cached := 0.5
	m := measure(constants.DataSourceOverdrive, constants.MeasurePopularity, 5805)
	m.Normalized = &cached
	v, ok = n.Normalize(m)
	require.True(t, ok)
	assert.Equal(t, 0.5, v)
}

func TestOverallQualityWeights(t *testing.T) {
	n, err := New()
	require.NoError(t, err)
	_, err = n.OverallQuality(context.Background(), nil, WithWeights(0.4, 0.4))
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))

	_, err = n.OverallQuality(context.Background(), nil, WithWeights(0.1, 0.9))
	assert.NoError(t, err, "weights that sum to 1 within float error are accepted")
}

func TestOverallQuality(t *testing.T) {
	n, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	popularity := func() *catalog.Measurement {
		return measure(constants.DataSourceOverdrive, constants.MeasurePopularity, overdrivePopularity[60])
	}
	rating := func() *catalog.Measurement {
		return measure(constants.DataSourceOverdrive, constants.MeasureRating, 5)
	}
	qual := func() *catalog.Measurement {
		return measure(constants.DataSourceMetadataWrangler, constants.MeasureQuality, 0.2)
	}

	tests := []struct {
		name         string
		measurements []*catalog.Measurement
		want         float64
	}{
		{"nothing uses the default", nil, 0.25},
		{"unnormalizable uses the default", []*catalog.Measurement{measure(constants.DataSourceOCLC, constants.MeasureRating, 3)}, 0.25},
		{"popularity alone", []*catalog.Measurement{popularity()}, 0.6},
		{"rating alone", []*catalog.Measurement{rating()}, 1},
		{"quality alone", []*catalog.Measurement{qual()}, 0.2},
		{"popularity and rating", []*catalog.Measurement{popularity(), rating()}, 0.6*0.3 + 1*0.7},
		{"rating and quality", []*catalog.Measurement{rating(), qual()}, 0.6},
		{"popularity and quality", []*catalog.Measurement{popularity(), qual()}, 0.4},
		{"all three", []*catalog.Measurement{popularity(), rating(), qual()}, (0.6*0.3+0.7)/2 + 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.OverallQuality(ctx, tt.measurements, WithDefault(0.25))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestOverallQualityWeightedAverage(t *testing.T) {
	n, err := New()
	require.NoError(t, err)
	heavy := measure(constants.DataSourceOverdrive, constants.MeasureRating, 5)
	heavy.Weight = 3
	light := measure(constants.DataSourceOverdrive, constants.MeasureRating, 1)
	got, err := n.OverallQuality(context.Background(), []*catalog.Measurement{heavy, light})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-9)
}

func TestLoadTables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	content := `popularity:
  Library staff: [10, 20, 30, 40]
ratings:
  Library staff: [0, 10]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	n, err := New(WithTablesFile(path))
	require.NoError(t, err)

	v, ok := n.Normalize(measure(constants.DataSourceLibraryStaff, constants.MeasurePopularity, 30))
	require.True(t, ok)
	assert.InDelta(t, 0.02, v, 1e-12)

	v, ok = n.Normalize(measure(constants.DataSourceLibraryStaff, constants.MeasureRating, 5))
	require.True(t, ok)
	assert.InDelta(t, 0.5, v, 1e-12)

	_, ok = n.Normalize(measure(constants.DataSourceOverdrive, constants.MeasurePopularity, 5805))
	assert.True(t, ok, "defaults survive an overlay")

	require.NoError(t, os.WriteFile(path, []byte("ratings:\n  Library staff: [5, 1]\n"), 0o644))
	_, err = New(WithTablesFile(path))
	assert.True(t, errors.IsConfigError(err))

	_, err = New(WithTablesFile(filepath.Join(dir, "missing.yaml")))
	assert.Error(t, err)
}

func TestMostRecent(t *testing.T) {
	old := measure(constants.DataSourceOverdrive, constants.MeasureRating, 1)
	old.IsMostRecent = false
	current := measure(constants.DataSourceOverdrive, constants.MeasureRating, 5)
	assert.Equal(t, []*catalog.Measurement{current}, MostRecent([]*catalog.Measurement{old, current}))
}
