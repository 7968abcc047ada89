package cli

import (
	"fmt"

	"github.com/dcaro/repoman/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewAddCmd creates the add command
func NewAddCmd() *cobra.Command {
	var keepLatest int

	cmd := &cobra.Command{
		Use:   "add DIR [sources...]",
		Short: "Add artifacts to the repository",
		Long: `Adds artifact sources to the repository: local files, directories
(recursed), http(s) URLs (downloaded first) and conf:FILE source lists
(conf:stdin reads from standard input). A source that cannot be parsed is
skipped with a warning; the rest of the batch still goes in.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keepLatest < 0 {
				return &models.RepoError{
					Type: models.ErrInvalidRetention,
					Err:  fmt.Errorf("keep-latest must be positive, got %d", keepLatest),
				}
			}

			r, _, err := openRepo(cmd, args)
			if err != nil {
				return err
			}

			logrus.Infof("Adding artifacts to the repo %s", r.Path())
			for _, src := range args[1:] {
				if err := r.AddSource(src); err != nil {
					// One bad source never sinks the batch.
					logrus.Warnf("Skipping source %s: %v", src, err)
				}
			}

			noop, _ := cmd.Flags().GetBool("noop")
			if keepLatest > 0 {
				// Save first so retention unlinks repo paths, not
				// the freshly added originals.
				if err := saveRepo(cmd, r); err != nil {
					return err
				}

				header := "Removed"
				if noop {
					header = "Would have removed"
				}
				removed, err := r.DeleteOld(keepLatest, noop)
				for _, art := range removed {
					logrus.Infof("%s %s", header, art.Path())
				}
				if err != nil {
					return err
				}
			}

			return saveRepo(cmd, r)
		},
	}

	cmd.Flags().IntVar(&keepLatest, "keep-latest", 0,
		"Remove all artifact versions but the latest NUM after adding")

	return cmd
}
