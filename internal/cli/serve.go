package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/gamevault/internal/cli/common"
	"github.com/xxxsen/gamevault/internal/db"
	"github.com/xxxsen/gamevault/internal/media"
	"github.com/xxxsen/gamevault/internal/metafetch"
	"github.com/xxxsen/gamevault/internal/server"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.Init("", cfg.LogLevel, 0, 0, 0, true)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
				return fmt.Errorf("create database directory: %w", err)
			}
			database, err := db.Open(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer database.Close()
			if err := db.EnsureSchema(ctx, database); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
			db.SetDefault(database)

			var store media.Store
			switch cfg.Media.Backend {
			case "s3":
				store, err = media.NewS3Store(ctx, cfg.Media.S3)
			default:
				store, err = media.NewLocalStore(cfg.Media.DataDir)
			}
			if err != nil {
				return fmt.Errorf("init media store: %w", err)
			}

			rawg := metafetch.NewRAWGClient(cfg.RAWG.BaseURL, cfg.RAWG.APIKey,
				time.Duration(cfg.RAWG.TimeoutSeconds)*time.Second)
			wiki := metafetch.NewWikipediaClient(cfg.Wikipedia.Endpoint, cfg.Wikipedia.UserAgent,
				time.Duration(cfg.Wikipedia.TimeoutSeconds)*time.Second)

			srv, err := server.New(cfg, store, rawg, wiki)
			if err != nil {
				return err
			}

			logutil.GetLogger(ctx).Info("starting server",
				zap.String("bind", cfg.Bind),
				zap.String("media_backend", cfg.Media.Backend),
				zap.Bool("rawg_enabled", rawg.Configured()),
			)
			return srv.Run(ctx)
		},
	}
}
