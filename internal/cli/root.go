package cli

import (
	"github.com/dcaro/repoman/internal/config"
	"github.com/dcaro/repoman/internal/repo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "repoman",
		Short: "Maintain a filesystem-resident artifact repository",
		Long: `Repoman maintains a directory tree of versioned build artifacts
(RPM packages, tarballs and their signatures): it indexes them by name and
version, deduplicates shared content, prunes old versions and publishes yum
metadata.

Every command takes the repository directory as its first argument.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolP("noop", "n", false, "Report what would be done without touching the filesystem")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file to use")
	rootCmd.PersistentFlags().StringArrayP("option", "o", nil, "Extra config option in the form section.name=value")
	rootCmd.PersistentFlags().StringP("temp-dir", "t", "", "Temporary directory for downloaded artifacts")
	rootCmd.PersistentFlags().StringP("stores", "s", "", "Comma-separated store classes to load (rpm, generic)")
	rootCmd.PersistentFlags().StringP("key", "k", "", "Path to the signing key; nothing is signed without it")
	rootCmd.PersistentFlags().String("passphrase", "", "Passphrase to unlock the signing key")
	rootCmd.PersistentFlags().Bool("with-sources", false, "Generate the sources tree when saving")

	// Add subcommands
	rootCmd.AddCommand(NewAddCmd())
	rootCmd.AddCommand(NewRemoveOldCmd())
	rootCmd.AddCommand(NewCreaterepoCmd())
	rootCmd.AddCommand(NewGenerateSrcCmd())
	rootCmd.AddCommand(NewSignCmd())

	return rootCmd
}

// buildConfig resolves the run settings: defaults, then the config file,
// then -o overrides, then explicit flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	options, _ := cmd.Flags().GetStringArray("option")
	for _, opt := range options {
		if err := cfg.ApplyOption(opt); err != nil {
			return nil, err
		}
	}

	if tempDir, _ := cmd.Flags().GetString("temp-dir"); tempDir != "" {
		cfg.TempDir = tempDir
	}
	if stores, _ := cmd.Flags().GetString("stores"); stores != "" {
		if err := cfg.ApplyOption("main.stores=" + stores); err != nil {
			return nil, err
		}
	}
	if key, _ := cmd.Flags().GetString("key"); key != "" {
		cfg.SigningKey = key
		passphrase, _ := cmd.Flags().GetString("passphrase")
		cfg.SigningPassphrase = passphrase
	}
	if withSources, _ := cmd.Flags().GetBool("with-sources"); withSources {
		cfg.WithSources = true
	}

	return cfg, nil
}

// openRepo builds the config and loads the repository named by the command's
// first positional argument.
func openRepo(cmd *cobra.Command, args []string) (*repo.Repo, *config.Config, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	r, err := repo.New(args[0], cfg)
	if err != nil {
		return nil, nil, err
	}
	return r, cfg, nil
}

// saveRepo persists the repo unless the run is a dry one.
func saveRepo(cmd *cobra.Command, r *repo.Repo) error {
	if noop, _ := cmd.Flags().GetBool("noop"); noop {
		logrus.Info("NOOP::repo would have been saved")
		return nil
	}
	return r.Save()
}
