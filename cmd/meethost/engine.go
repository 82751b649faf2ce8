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

	"github.com/go-chi/chi/v5"
	"github.com/koscakluka/meethost/internal/simengine"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Run the simulated conferencing engine",
	Long: `Run a stand-in engine that speaks the remote view protocol on /engine.
It answers joins, hang-ups and commands with the notifications a real engine
would send, which is enough to drive join, serve and console locally.`,
	Args: cobra.NoArgs,
	RunE: runEngine,
}

func init() {
	engineCmd.Flags().String("listen", "", "listen address (default from config)")
	rootCmd.AddCommand(engineCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listen := cfg.Engine.Listen
	if flag, _ := cmd.Flags().GetString("listen"); flag != "" {
		listen = flag
	}

	logger := newLogger()
	engine := simengine.New(simengine.WithLogger(logger))
	defer engine.Close()

	router := chi.NewRouter()
	router.Handle("/engine", engine)

	logger.Info("Engine listening", "addr", listen, "path", "/engine")
	return serveHTTP(ctx, &http.Server{
		Addr:              listen,
		Handler:           otelhttp.NewHandler(router, "meethost.engine"),
		ReadHeaderTimeout: 10 * time.Second,
	})
}

// serveHTTP runs server until ctx ends, then shuts it down gracefully.
func serveHTTP(ctx context.Context, server *http.Server) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving %s: %w", server.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
