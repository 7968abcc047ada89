package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewGenerateSrcCmd creates the generate-src command
func NewGenerateSrcCmd() *cobra.Command {
	var withPatches bool

	cmd := &cobra.Command{
		Use:   "generate-src DIR",
		Short: "Populate the src dir with the tarballs from the src.rpm files in the repo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := openRepo(cmd, args)
			if err != nil {
				return err
			}

			if noop, _ := cmd.Flags().GetBool("noop"); noop {
				logrus.Info("NOOP::sources would have been extracted")
				return nil
			}

			return r.GenerateSources(withPatches)
		},
	}

	cmd.Flags().BoolVarP(&withPatches, "with-patches", "p", false, "Include the patch files")

	return cmd
}
