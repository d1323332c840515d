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

	"redirect-mgmt-go/pkg/api"
	"redirect-mgmt-go/pkg/cli/logger"
	"redirect-mgmt-go/pkg/config"
	"redirect-mgmt-go/pkg/store"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func main() {
	if err := newServeCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var configPath, domain string

	cmd := &cobra.Command{
		Use:   "tum-provider",
		Short: "Run a local short-link provider for development and tests",
		Long: `tum-provider speaks the same create/change API as the hosted provider and
serves the short links it issues. Aliases listed in api.preview_aliases, or
toggled through /admin/preview/:alias, answer with a preview page instead of
redirecting.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath, domain)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default: ~/.config/redirect-mgmt/config.toml)")
	cmd.Flags().StringVar(&domain, "domain", "", "short link domain to report (default: localhost:<api.port>)")
	return cmd
}

func serve(ctx context.Context, configPath, domain string) error {
	if err := config.LoadEnvFiles(); err != nil {
		return err
	}
	if configPath == "" {
		var err error
		if configPath, err = config.ConfigPath(); err != nil {
			return err
		}
	}
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewWithWriter(os.Stdout, cfg.Log.Level).With("component", "provider")

	tokens, err := cfg.ResolveTokens()
	if err != nil {
		return err
	}
	if domain == "" {
		domain = fmt.Sprintf("localhost:%d", cfg.API.Port)
	}

	gin.SetMode(gin.ReleaseMode)
	s := store.New(tokens, cfg.API.PreviewAliases)
	router := api.NewRouter(s, domain, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("provider starting", "addr", srv.Addr, "domain", domain, "tokens", len(tokens))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-sigCtx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited", "links", s.Len())
	return nil
}
