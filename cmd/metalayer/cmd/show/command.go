// Package show implements the show command.
package show

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/metalayer/internal/cmd/output"
	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
)

// AppContext is what the show command needs from the app.
type AppContext interface {
	Store(ctx context.Context) (catalog.Store, error)
	OutputFormat() string
	Logger() *zerolog.Logger
}

// Title is everything the catalog holds about one identifier.
type Title struct {
	Identifier   *catalog.Identifier    `json:"identifier" yaml:"identifier"`
	Editions     []*catalog.Edition     `json:"editions,omitempty" yaml:"editions,omitempty"`
	LicensePools []*catalog.LicensePool `json:"license_pools,omitempty" yaml:"license_pools,omitempty"`
	Measurements []*catalog.Measurement `json:"measurements,omitempty" yaml:"measurements,omitempty"`
}

// NewCommand creates the show command.
func NewCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:     "show IDENTIFIER_TYPE IDENTIFIER",
		GroupID: "core",
		Short:   "Print the editions, license pools and measurements of a title",
		Example: `  metalayer show "Overdrive ID" 3e2b4c1a
  metalayer show ISBN 9780142437247 --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, err := Lookup(cmd.Context(), app, args[0], args[1])
			if err != nil {
				return err
			}
			format := app.OutputFormat()
			if format == "" {
				format = string(output.FormatYAML)
			}
			return output.NewFormatter(output.Format(format)).Format(cmd.OutOrStdout(), title)
		},
	}
}

// Lookup gathers the records attached to one identifier.
func Lookup(ctx context.Context, app AppContext, typ, value string) (*Title, error) {
	ctx = logging.WithLogger(ctx, app.Logger())
	store, err := app.Store(ctx)
	if err != nil {
		return nil, err
	}
	identifier, err := store.LookupIdentifier(ctx, typ, value)
	if err != nil {
		return nil, errors.WrapResource("find", "identifier", typ+"/"+value, err)
	}

	title := &Title{Identifier: identifier}
	if title.Editions, err = store.FindEditions(ctx, catalog.EditionQuery{IdentifierIDs: []string{identifier.ID}}); err != nil {
		return nil, err
	}
	if title.LicensePools, err = store.LicensePoolsForIdentifier(ctx, identifier.ID); err != nil {
		return nil, err
	}
	if title.Measurements, err = store.Measurements(ctx, identifier.ID); err != nil {
		return nil, err
	}
	return title, nil
}
