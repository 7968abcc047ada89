package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewCreaterepoCmd creates the createrepo command
func NewCreaterepoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "createrepo DIR",
		Short: "Generate yum repodata for each distro tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := openRepo(cmd, args)
			if err != nil {
				return err
			}

			if noop, _ := cmd.Flags().GetBool("noop"); noop {
				logrus.Info("NOOP::repodata would have been generated")
				return nil
			}

			return r.Createrepo()
		},
	}
}
