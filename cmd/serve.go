package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/maplecrest-planning/taxplan-cli/internal/catalog"
	"github.com/maplecrest-planning/taxplan-cli/internal/profile"
	"github.com/maplecrest-planning/taxplan-cli/internal/rates"
	"github.com/maplecrest-planning/taxplan-cli/internal/scenario"
	"github.com/maplecrest-planning/taxplan-cli/internal/server"
)

var servePort int

const shutdownGrace = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cat, err := catalog.Load()
		if err != nil {
			return err
		}
		o, err := initOracle()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close()
		}

		srv := server.New(
			profile.NewBuilder(cat),
			o,
			rates.New(o, ratesConfig(cfg.Rates)),
			scenario.New(o, scenarioConfig(cfg.Scenario)),
			st,
		)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownServer(httpSrv)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("oracle_mode", cfg.Oracle.Mode),
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// shutdownServer drains in-flight requests on its own deadline. The signal
// context that triggered shutdown is already cancelled and cannot be used
// for the drain.
func shutdownServer(httpSrv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		zap.L().Warn("server shutdown", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
