// Package measurement turns raw measurements into 0..1 scores and
// combines them into an overall quality score for ranking.
package measurement

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
)

// Default weights for OverallQuality.
const (
	DefaultPopularityWeight = 0.3
	DefaultRatingWeight     = 0.7
)

const weightTolerance = 1e-9

// Normalizer maps measurements onto a 0..1 scale.
type Normalizer struct {
	tables Tables
}

type options struct {
	tables Tables
}

// Option configures a Normalizer.
type Option func(*options) error

// WithTables replaces the lookup tables.
func WithTables(t Tables) Option {
	return func(o *options) error {
		o.tables = t
		return nil
	}
}

// WithTablesFile loads tables from a YAML file, overlaid on the defaults.
func WithTablesFile(path string) Option {
	return func(o *options) error {
		if path == "" {
			return nil
		}
		t, err := LoadTables(path)
		if err != nil {
			return err
		}
		o.tables = t
		return nil
	}
}

// New creates a Normalizer with the default tables unless overridden.
func New(opts ...Option) (*Normalizer, error) {
	o := &options{tables: DefaultTables()}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return &Normalizer{tables: o.tables}, nil
}

// Normalize returns m's value on a 0..1 scale. The result is cached on
// m. The second return is false when the quantity from m's source has no
// known scale, or when there is no value at all.
func (n *Normalizer) Normalize(m *catalog.Measurement) (float64, bool) {
	if m.Normalized != nil {
		return *m.Normalized, true
	}
	if m.Value == 0 {
		return 0, false
	}

	var v float64
	switch {
	case m.Quantity == constants.MeasurePopularity && n.tables.Popularity[m.DataSource] != nil:
		v = percentile(n.tables.Popularity[m.DataSource], m.Value)
	case m.Quantity == constants.MeasureDownloads && n.tables.Downloads[m.DataSource] != nil:
		v = percentile(n.tables.Downloads[m.DataSource], m.Value)
	case m.Quantity == constants.MeasureRating && hasScale(n.tables.Ratings, m.DataSource):
		scale := n.tables.Ratings[m.DataSource]
		v = (m.Value - scale[0]) / (scale[1] - scale[0])
	case n.tables.Prenormal[m.DataSource]:
		v = m.Value
	default:
		return 0, false
	}
	m.Normalized = &v
	return v, true
}

func hasScale(scales map[string][2]float64, source string) bool {
	_, ok := scales[source]
	return ok
}

// percentile finds where value falls in d and returns position * 0.01.
// Ascending tables return the first position whose entry is >= value;
// descending tables the first whose entry is <= value.
func percentile(d []float64, value float64) float64 {
	var position int
	if len(d) > 1 && d[0] > d[len(d)-1] {
		position = sort.Search(len(d), func(i int) bool { return d[i] <= value })
	} else {
		position = sort.SearchFloat64s(d, value)
	}
	return float64(position) * 0.01
}

// QualityOption adjusts an OverallQuality computation.
type QualityOption func(*quality)

type quality struct {
	popularityWeight float64
	ratingWeight     float64
	defaultValue     float64
}

// WithWeights sets the popularity and rating weights. They must sum to 1.
func WithWeights(popularity, rating float64) QualityOption {
	return func(q *quality) {
		q.popularityWeight = popularity
		q.ratingWeight = rating
	}
}

// WithDefault sets the score returned when nothing can be normalized.
func WithDefault(v float64) QualityOption {
	return func(q *quality) { q.defaultValue = v }
}

// OverallQuality blends the averaged popularity (and downloads) with the
// averaged rating, then folds in the averaged quality scores 50/50.
// Missing categories fall back to whatever is present.
func (n *Normalizer) OverallQuality(ctx context.Context, measurements []*catalog.Measurement, opts ...QualityOption) (float64, error) {
	q := quality{popularityWeight: DefaultPopularityWeight, ratingWeight: DefaultRatingWeight}
	for _, opt := range opts {
		opt(&q)
	}
	if math.Abs(q.popularityWeight+q.ratingWeight-1) > weightTolerance {
		return 0, errors.NewConfigError("measurement",
			fmt.Sprintf("popularity weight and rating weight must sum to 1 (%.2f + %.2f)", q.popularityWeight, q.ratingWeight), nil)
	}

	var popularities, ratings, qualities []*catalog.Measurement
	for _, m := range measurements {
		switch m.Quantity {
		case constants.MeasurePopularity, constants.MeasureDownloads:
			popularities = append(popularities, m)
		case constants.MeasureRating:
			ratings = append(ratings, m)
		case constants.MeasureQuality:
			qualities = append(qualities, m)
		}
	}
	popularity, hasPopularity := n.average(popularities)
	rating, hasRating := n.average(ratings)
	qual, hasQuality := n.average(qualities)

	var final float64
	switch {
	case !hasPopularity && !hasRating && !hasQuality:
		return q.defaultValue, nil
	case !hasRating && !hasQuality:
		return popularity, nil
	case !hasPopularity && !hasQuality:
		return rating, nil
	case !hasPopularity && !hasRating:
		return qual, nil
	case !hasPopularity:
		final = rating
	case !hasRating:
		final = popularity
	default:
		final = popularity*q.popularityWeight + rating*q.ratingWeight
	}

	logger := logging.FromContext(ctx)
	if hasQuality {
		logger.Debug().Float64("popularity_rating", final).Float64("quality", qual).Msg("folding in quality")
		final = final/2 + qual/2
	}
	logger.Debug().Float64("quality", final).Msg("overall quality")
	return final, nil
}

// average is the weight-weighted mean of the measurements that normalize.
func (n *Normalizer) average(measurements []*catalog.Measurement) (float64, bool) {
	var total, weights float64
	for _, m := range measurements {
		v, ok := n.Normalize(m)
		if !ok {
			continue
		}
		w := m.Weight
		if w == 0 {
			w = 1
		}
		weights += w
		total += v * w
	}
	if weights == 0 {
		return 0, false
	}
	return total / weights, true
}

// MostRecent keeps only the measurements flagged most recent.
func MostRecent(measurements []*catalog.Measurement) []*catalog.Measurement {
	var out []*catalog.Measurement
	for _, m := range measurements {
		if m.IsMostRecent {
			out = append(out, m)
		}
	}
	return out
}
