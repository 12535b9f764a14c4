// Package quality implements the quality command.
package quality

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/metalayer/internal/cmd/output"
	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
	"github.com/agentstation/metalayer/pkg/measurement"
)

// AppContext is what the quality command needs from the app.
type AppContext interface {
	Store(ctx context.Context) (catalog.Store, error)
	Normalizer() (*measurement.Normalizer, error)
	OutputFormat() string
	Logger() *zerolog.Logger
}

// Report is the quality of one identifier.
type Report struct {
	Identifier   string  `json:"identifier" yaml:"identifier"`
	Measurements int     `json:"measurements" yaml:"measurements"`
	Quality      float64 `json:"quality" yaml:"quality"`
}

// Table implements output.Tabular.
func (r Report) Table() output.Data {
	return output.Data{
		Headers: []string{"Identifier", "Measurements", "Quality"},
		Rows:    [][]string{{r.Identifier, fmt.Sprint(r.Measurements), fmt.Sprintf("%.4f", r.Quality)}},
	}
}

// NewCommand creates the quality command.
func NewCommand(app AppContext) *cobra.Command {
	var popularity, rating, fallback float64

	cmd := &cobra.Command{
		Use:     "quality IDENTIFIER_TYPE IDENTIFIER",
		GroupID: "core",
		Short:   "Show the overall quality of a title from its measurements",
		Example: `  metalayer quality "Gutenberg ID" 2701
  metalayer quality ISBN 9780142437247 --popularity-weight 0.5 --rating-weight 0.5`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := Run(cmd.Context(), app, args[0], args[1],
				measurement.WithWeights(popularity, rating),
				measurement.WithDefault(fallback))
			if err != nil {
				return err
			}
			return output.NewFormatter(output.DetectFormat(app.OutputFormat())).Format(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().Float64Var(&popularity, "popularity-weight", measurement.DefaultPopularityWeight, "weight of popularity against rating")
	cmd.Flags().Float64Var(&rating, "rating-weight", measurement.DefaultRatingWeight, "weight of rating against popularity")
	cmd.Flags().Float64Var(&fallback, "default", 0, "quality reported when no measurement can be normalized")
	return cmd
}

// Run computes the overall quality of the most recent measurements of
// one identifier.
func Run(ctx context.Context, app AppContext, typ, value string, opts ...measurement.QualityOption) (*Report, error) {
	ctx = logging.WithLogger(ctx, app.Logger())
	store, err := app.Store(ctx)
	if err != nil {
		return nil, err
	}
	identifier, err := store.LookupIdentifier(ctx, typ, value)
	if err != nil {
		return nil, errors.WrapResource("find", "identifier", typ+"/"+value, err)
	}
	all, err := store.Measurements(ctx, identifier.ID)
	if err != nil {
		return nil, err
	}
	measurements := measurement.MostRecent(all)
	normalizer, err := app.Normalizer()
	if err != nil {
		return nil, err
	}
	q, err := normalizer.OverallQuality(ctx, measurements, opts...)
	if err != nil {
		return nil, err
	}
	return &Report{Identifier: identifier.String(), Measurements: len(measurements), Quality: q}, nil
}
