package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"MinifluxAI/internal/app"
	"MinifluxAI/internal/config"
	"MinifluxAI/internal/domain"
	"MinifluxAI/internal/infrastructure/storage"
	"MinifluxAI/internal/logging"
	"MinifluxAI/internal/signature"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "minifluxai",
		Short:         "AI summaries for Miniflux entries",
		Long:          "minifluxai receives Miniflux webhooks, queues new entries and periodically prepends AI summaries to them.",
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().String("config", "", "path to YAML config (default $"+config.ConfigPathEnv+")")

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the webhook endpoint and run scheduled drains",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadValidated(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Serve(ctx)
		},
	}
	rootCmd.AddCommand(serveCmd)

	drainCmd := &cobra.Command{
		Use:   "drain",
		Short: "Run one drain cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadValidated(cmd)
			if err != nil {
				return err
			}
			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			report, err := application.DrainOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "listed=%d committed=%d skipped=%d failed=%d missing=%d\n",
				report.Listed, report.Committed, report.Skipped, report.Failed, report.Missing)
			return nil
		},
	}
	rootCmd.AddCommand(drainCmd)

	queueCmd := &cobra.Command{Use: "queue", Short: "Inspect pending entries"}
	queueListCmd := &cobra.Command{
		Use:   "list",
		Short: "List pending entry keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(cmd, func(ctx context.Context, queue storage.Queue) error {
				keys, err := queue.List(ctx, domain.EntryKeyPrefix)
				if err != nil {
					return err
				}
				for _, key := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), key)
				}
				return nil
			})
		},
	}
	queueShowCmd := &cobra.Command{
		Use:   "show <entry-id>",
		Short: "Print a pending entry as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry id %q: %w", args[0], err)
			}
			return withQueue(cmd, func(ctx context.Context, queue storage.Queue) error {
				entry, err := queue.Get(ctx, domain.EntryKey(id))
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entry)
			})
		},
	}
	queueCmd.AddCommand(queueListCmd, queueShowCmd)
	rootCmd.AddCommand(queueCmd)

	signCmd := &cobra.Command{
		Use:   "sign [file]",
		Short: "Print the webhook signature of a payload (stdin when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load(cmd)
			if err != nil {
				return err
			}
			var body []byte
			if len(args) == 1 {
				body, err = os.ReadFile(args[0])
			} else {
				body, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			sig, err := signature.Sign([]byte(cfg.Miniflux.WebhookSecret), body)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
	rootCmd.AddCommand(signCmd)

	return rootCmd
}

func load(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	return cfg, logger, nil
}

func loadValidated(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, logger, err := load(cmd)
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func withQueue(cmd *cobra.Command, fn func(context.Context, storage.Queue) error) error {
	cfg, logger, err := load(cmd)
	if err != nil {
		return err
	}
	queue, err := storage.OpenQueue(cmd.Context(), cfg.Queue, logger.With("component", "queue"))
	if err != nil {
		return err
	}
	defer queue.Close()
	return fn(cmd.Context(), queue)
}
