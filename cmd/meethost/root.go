package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/koscakluka/meethost/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	cfgFile  string
	verbose  bool
	cfg      config.Config
	shutdown = func(context.Context) error { return nil }
)

var rootCmd = &cobra.Command{
	Use:           "meethost",
	Short:         "Host embedded conferences",
	Long:          `meethost hosts a conference view backed by a conferencing engine, routes the engine's notifications and forwards commands to it.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		if cfg.Trace {
			stop, err := installTracing()
			if err != nil {
				return err
			}
			shutdown = stop
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return shutdown(context.Background())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/meethost/config.yaml)")
	rootCmd.PersistentFlags().Bool("trace", false, "print spans to stdout")
	rootCmd.PersistentFlags().String("engine-url", "", "engine WebSocket URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug messages")

	_ = viper.BindPFlag("trace", rootCmd.PersistentFlags().Lookup("trace"))
	_ = viper.BindPFlag("engine.url", rootCmd.PersistentFlags().Lookup("engine-url"))
}

// newLogger logs to stderr. Library packages log through the OpenTelemetry
// bridge; the CLI hands this logger to the components it builds.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func installTracing() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", "meethost"))),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
