// Package workid implements the workid command.
package workid

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/metalayer/pkg/canonicalize"
	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/workid"
)

// NewCommand creates the workid command. It needs nothing from the app.
func NewCommand() *cobra.Command {
	var title, author, medium string

	cmd := &cobra.Command{
		Use:     "workid",
		GroupID: "core",
		Short:   "Print the permanent work ID for a title and author",
		Long: `Workid prints the identifier shared by every edition of the same work.

--author is the author's sort name ("Melville, Herman"). A display name
("Herman Melville") is first turned into a sort name.`,
		Example: `  metalayer workid --title "Moby-Dick" --author "Melville, Herman"
  metalayer workid --title "Moby-Dick" --author "Herman Melville" --medium Audio`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := Calculate(title, author, medium)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title of the work")
	cmd.Flags().StringVar(&author, "author", "", "primary author")
	cmd.Flags().StringVar(&medium, "medium", constants.MediumBook, "medium: Book, Audio, Periodical, Music, Video, Image, Courseware")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// Calculate returns the permanent work ID for the given title, author
// and medium.
func Calculate(title, author, medium string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", errors.NewValidationError("title", title, "title is required")
	}
	if !constants.IsKnownMedium(medium) {
		return "", errors.NewValidationError("medium", medium, "unknown medium")
	}
	if author != "" && !strings.Contains(author, ",") {
		author = canonicalize.SortName(author)
	}
	return workid.ForTitleAndAuthor(title, author, constants.WorkIDTag(medium)), nil
}
