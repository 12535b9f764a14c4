// Package ingest implements the ingest command.
package ingest

import (
	"context"
	"fmt"
	"os"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/metalayer/internal/cmd/output"
	"github.com/agentstation/metalayer/pkg/catalog"
	"github.com/agentstation/metalayer/pkg/csvimport"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/logging"
	"github.com/agentstation/metalayer/pkg/metadata"
	"github.com/agentstation/metalayer/pkg/reconcile"
)

// AppContext is what the ingest command needs from the app.
type AppContext interface {
	Store(ctx context.Context) (catalog.Store, error)
	SaveStore(ctx context.Context) error
	Reconciler(ctx context.Context) (*reconcile.Reconciler, error)
	Policy(ctx context.Context, opts ...metadata.PolicyOption) (*metadata.ReplacementPolicy, error)
	Collection(ctx context.Context) (*catalog.Collection, error)
	Importer(source string) (*csvimport.Importer, error)
	DataSource() string
	OutputFormat() string
	Logger() *zerolog.Logger
}

// Result summarizes one ingest run.
type Result struct {
	File    string `json:"file" yaml:"file"`
	Records int    `json:"records" yaml:"records"`
	Changed int    `json:"changed" yaml:"changed"`
	Skipped int    `json:"skipped" yaml:"skipped"`
	Failed  int    `json:"failed" yaml:"failed"`
	Linked  int    `json:"linked" yaml:"linked"`
}

// Table implements output.Tabular.
func (r Result) Table() output.Data {
	return output.Data{
		Headers: []string{"File", "Records", "Changed", "Skipped", "Failed", "Linked"},
		Rows: [][]string{{
			r.File,
			fmt.Sprint(r.Records), fmt.Sprint(r.Changed), fmt.Sprint(r.Skipped),
			fmt.Sprint(r.Failed), fmt.Sprint(r.Linked),
		}},
	}
}

// NewCommand creates the ingest command.
func NewCommand(app AppContext) *cobra.Command {
	var source string
	var force bool

	cmd := &cobra.Command{
		Use:     "ingest FILE",
		GroupID: "core",
		Short:   "Apply a CSV or XLSX metadata feed to the catalog",
		Long: `Ingest reads a spreadsheet of book metadata and applies each row to the
catalog snapshot under the configured replacement policy.

Rows without any identifier column value are skipped. Rows whose data is
older than what the catalog already has from the same source are left
alone unless --force is given.`,
		Example: `  metalayer ingest staff-picks.csv
  metalayer ingest --source "Library staff" --force titles.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if source == "" {
				source = app.DataSource()
			}
			result, err := Run(cmd.Context(), app, args[0], source, metadata.WithForce(force))
			if err != nil {
				return err
			}
			return output.NewFormatter(output.DetectFormat(app.OutputFormat())).Format(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "data source the feed's records come from (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "apply records even when they are not newer than the catalog")
	return cmd
}

// Run imports path and applies every record, then saves the catalog.
// Records are dated by the file's modification time.
// Records that do not describe their edition are logged and counted as
// failed; store failures stop the run.
func Run(ctx context.Context, app AppContext, path, source string, opts ...metadata.PolicyOption) (*Result, error) {
	ctx = logging.WithLogger(ctx, app.Logger())
	importer, err := app.Importer(source)
	if err != nil {
		return nil, err
	}
	records, err := importer.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	// Feeds carry no timestamps of their own; the file's modification
	// time stands in so an unchanged feed is not applied twice.
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WrapIO("stat", path, err)
	}
	modified := utc.New(info.ModTime())
	for _, rec := range records {
		if rec.DataSourceLastUpdated == nil {
			rec.DataSourceLastUpdated = &modified
		}
	}

	store, err := app.Store(ctx)
	if err != nil {
		return nil, err
	}
	r, err := app.Reconciler(ctx)
	if err != nil {
		return nil, err
	}
	collection, err := app.Collection(ctx)
	if err != nil {
		return nil, err
	}
	policy, err := app.Policy(ctx, opts...)
	if err != nil {
		return nil, err
	}

	result := &Result{File: path, Records: len(records)}
	logger := logging.FromContext(ctx)
	for _, rec := range records {
		if rec.PrimaryIdentifier == nil {
			logger.Warn().Str("title", rec.Title).Msg("skipping row without an identifier")
			result.Skipped++
			continue
		}
		identifier, _, err := rec.PrimaryIdentifier.Load(ctx, store)
		if err != nil {
			return nil, errors.WrapResource("create", "identifier", rec.PrimaryIdentifier.String(), err)
		}
		edition, _, err := store.FindOrCreateEdition(ctx, rec.DataSource, identifier.ID)
		if err != nil {
			return nil, errors.WrapResource("create", "edition", identifier.String(), err)
		}

		_, changed, err := r.ApplyMetadata(ctx, rec, edition, collection, policy)
		if errors.IsIdentityMismatch(err) || errors.IsValidationError(err) {
			logger.Error().Err(err).Str("identifier", identifier.String()).Msg("record rejected")
			result.Failed++
			continue
		}
		if err != nil {
			return nil, err
		}
		if changed {
			result.Changed++
		}

		linked, err := r.AssociateWithIdentifiersBasedOnPermanentWorkID(ctx, rec)
		if err != nil {
			return nil, err
		}
		result.Linked += linked
	}

	if err := app.SaveStore(ctx); err != nil {
		return nil, err
	}
	logger.Info().
		Str("file", path).
		Int("records", result.Records).
		Int("changed", result.Changed).
		Msg("ingested feed")
	return result, nil
}
