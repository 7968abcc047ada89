package cli

import (
	"fmt"

	"github.com/dcaro/repoman/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRemoveOldCmd creates the remove-old command
func NewRemoveOldCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "remove-old DIR",
		Short: "Remove old versions of artifacts",
		Long: `Keeps only the newest --keep versions of every artifact name and
deletes the rest. With --noop the removals are reported but nothing is
touched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep <= 0 {
				return &models.RepoError{
					Type: models.ErrInvalidRetention,
					Err:  fmt.Errorf("keep must be >0, got %d", keep),
				}
			}

			r, _, err := openRepo(cmd, args)
			if err != nil {
				return err
			}

			noop, _ := cmd.Flags().GetBool("noop")
			header := "Removed"
			if noop {
				header = "Would have removed"
			}

			removed, err := r.DeleteOld(keep, noop)
			for _, art := range removed {
				logrus.Infof("%s %s", header, art.Path())
			}
			if err != nil {
				return err
			}

			return saveRepo(cmd, r)
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 1, "Number of versions to keep")

	return cmd
}
