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

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/harrylevesque/listqr/internal/api"
	"github.com/harrylevesque/listqr/internal/auth"
	"github.com/harrylevesque/listqr/internal/certs"
	"github.com/harrylevesque/listqr/internal/config"
	"github.com/harrylevesque/listqr/internal/crypto"
	"github.com/harrylevesque/listqr/internal/store"
	"github.com/harrylevesque/listqr/internal/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "listqr-server",
		Short:        "Serve listqr lists over HTTP",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	cmd.AddCommand(newServeCmd(), newMigrateCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Get()
			if err != nil {
				return err
			}
			if err := utils.EnsureParentDir(cfg.Database.Path); err != nil {
				return err
			}
			if err := store.RunMigrations(cfg.Database.Path); err != nil {
				return err
			}
			version, dirty, err := store.MigrationVersion(cfg.Database.Path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s at version %d (dirty=%t)\n", cfg.Database.Path, version, dirty)
			return nil
		},
	}
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Get()
	if err != nil {
		return err
	}
	logger, err := utils.NewLogger(cfg.Log.Path, cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return err
	}
	defer logger.Close()
	if cfg.Log.Path != "" {
		logger.RotateLog(24 * time.Hour)
	}

	master, err := crypto.ReadMasterKey(cfg.Auth.MasterKeyHex, cfg.Auth.MasterKeyFile)
	if err != nil {
		logger.Error().Err(err).Msg("master key unavailable; run genmasterkey or set MASTER_KEY_HEX")
		return err
	}
	keys, err := crypto.DeriveSessionKeys(master)
	if err != nil {
		return err
	}

	db, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.Database.Path).Msg("open database")
		return err
	}
	st := store.New(db)
	defer st.Close()

	sessions := auth.NewSessions(st, auth.Options{
		Keys:         keys,
		MaxAge:       cfg.Auth.SessionMaxAge,
		RefreshAfter: cfg.Auth.RefreshAfter,
		Secure:       cfg.Auth.SecureCookies,
		BcryptCost:   bcrypt.DefaultCost,
	})
	cancelEvents := sessions.OnSessionChange(func(ev auth.SessionEvent) {
		e := logger.Info().Str("event", ev.Kind.String())
		if ev.Identity != nil {
			e = e.Str("user_id", ev.Identity.UserID)
		}
		e.Msg("session changed")
	})
	defer cancelEvents()

	s, err := api.NewServer(api.ServerOptions{
		Repo:         st,
		Sessions:     sessions,
		Logger:       logger,
		PublicOrigin: cfg.Server.PublicOrigin,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tlsCerts := certs.NewCertManager(cfg.Server.TLSCert, cfg.Server.TLSKey)
	if tlsCerts.Enabled() {
		cert, err := tlsCerts.Check()
		if err != nil {
			logger.Error().Err(err).Str("cert", cfg.Server.TLSCert).Msg("tls certificate")
			return err
		}
		if tlsCerts.ExpiresWithin(cert, 14*24*time.Hour) {
			logger.Warn().Time("not_after", cert.NotAfter).Msg("tls certificate expires soon")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Bool("tls", tlsCerts.Enabled()).Msg("server running")
		var err error
		if tlsCerts.Enabled() {
			err = srv.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
