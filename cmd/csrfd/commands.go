package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JeanGrijp/go-csrf-firewall/csrf"
	"github.com/JeanGrijp/go-csrf-firewall/internal/config"
	"github.com/JeanGrijp/go-csrf-firewall/internal/logger"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "csrfd",
		Short:         "Demo server for double-submit cookie CSRF protection",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newServeCmd(), newTokenCmd())
	return root
}

// loadConfig reads the YAML file (if any), then the environment, then flags.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	var (
		cfgPath string
		addr    string
		strict  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server behind the CSRF issuer and firewall",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("strict") {
				cfg.Firewall.Strict = strict
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := logger.New(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, ServiceName: "csrfd"})
			defer log.Sync()

			reg := prometheus.NewRegistry()
			h, err := newServer(cfg, log, reg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, log, cfg.Server.Addr, h)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to the YAML config file")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&strict, "strict", false, "validate every method, including GET/HEAD/OPTIONS")
	return cmd
}

func serve(ctx context.Context, log *zap.Logger, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func newTokenCmd() *cobra.Command {
	var length int

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a freshly generated token",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := csrf.GenerateToken(length)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().IntVarP(&length, "length", "n", csrf.DefaultTokenLength, "token length in characters")
	return cmd
}
