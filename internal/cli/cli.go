package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/gamevault/internal/cli/common"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "gamevault",
	Short: "Catalog game collections and serve them over HTTP",
}

// Execute runs the CLI.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Error("exec cmd failed", zap.Error(err))
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, common.ConfigFlag, "", "Path to the config file")
	rootCmd.AddCommand(newServeCommand())
}
