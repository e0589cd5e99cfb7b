package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tryon-storefront/internal/config"
)

var (
	configPath string
	apiURL     string
	imagesDir  string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tryon",
		Short:         "AI try-on from the command line",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if apiURL != "" {
				loaded.API.BaseURL = apiURL
			}
			if imagesDir != "" {
				loaded.Reference.ImagesDir = imagesDir
			}

			// the terminal belongs to the progress view; only warnings by default
			loaded.Logging.Development = true
			loaded.Logging.Level = "warn"
			if verbose {
				loaded.Logging.Level = "debug"
			}

			l, err := config.NewLogger(loaded.Logging)
			if err != nil {
				return err
			}
			cfg, logger = loaded, l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "tryon.yaml", "config file")
	root.PersistentFlags().StringVar(&apiURL, "api-url", "", "head-swap API base URL (e.g. http://127.0.0.1:5003)")
	root.PersistentFlags().StringVar(&imagesDir, "images-dir", "", "directory holding the reference images")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(runCmd(), validateCmd(), refsCmd())
	return root
}

func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}
