package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewSignCmd creates the sign-rpms command
func NewSignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign-rpms DIR",
		Short: "Write detached signatures for all unsigned artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := openRepo(cmd, args)
			if err != nil {
				return err
			}

			if noop, _ := cmd.Flags().GetBool("noop"); noop {
				logrus.Info("NOOP::artifacts would have been signed")
				return nil
			}

			return r.SignAll()
		},
	}
}
