package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	host "github.com/koscakluka/meethost/core"
	"github.com/koscakluka/meethost/core/commands"
	"github.com/koscakluka/meethost/core/conference"
	"github.com/koscakluka/meethost/core/intent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

const maxBodyBytes = 1 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host a conference controlled over HTTP",
	Long: `Start a host showing the engine's welcome page and expose it over HTTP:

  POST /launch            join the conference described by the JSON body
  POST /commands/{name}   send a command, e.g. /commands/hang_up
  GET  /state             lifecycle state of the host
  GET  /schema            JSON schema of the launch body
  GET  /metrics           Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// hostController is what the HTTP surface needs from a running host.
type hostController interface {
	NewIntent(in *intent.Intent) error
	SendCommand(in *intent.Intent) bool
	State() (host.State, bool)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listen := cfg.Serve.Listen
	if flag, _ := cmd.Flags().GetString("listen"); flag != "" {
		listen = flag
	}

	logger := newLogger()
	rt, err := startHost(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	handler := newServeHandler(rt, registry)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Serving host API", "addr", listen)
		return serveHTTP(ctx, &http.Server{
			Addr:              listen,
			Handler:           otelhttp.NewHandler(handler, "meethost.serve"),
			ReadHeaderTimeout: 10 * time.Second,
		})
	})
	g.Go(func() error {
		rt.Wait(ctx)
		return errHostFinished
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errHostFinished) {
		_ = rt.Shutdown()
		return err
	}
	return rt.Shutdown()
}

var errHostFinished = errors.New("host finished")

func newServeHandler(controller hostController, registry *prometheus.Registry) http.Handler {
	commandsSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meethost_http_commands_total",
		Help: "Commands received over HTTP, by command and outcome.",
	}, []string{"command", "outcome"})
	registry.MustRegister(commandsSent)

	router := chi.NewRouter()

	router.Post("/launch", func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if len(body) == 0 {
			writeError(w, http.StatusBadRequest, errors.New("launch body must describe a conference"))
			return
		}

		in := intent.New(host.ActionConference).PutExtra(host.ExtraConferenceOptions, body)
		if _, err := host.ConferenceOptions(in); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := controller.NewIntent(in); err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	router.Post("/commands/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		kind, ok := commands.KindForName(name)
		if !ok {
			commandsSent.WithLabelValues("unknown", "rejected").Inc()
			writeError(w, http.StatusNotFound, errors.New("unknown command "+name))
			return
		}

		extras, err := decodeBody(r)
		if err != nil {
			commandsSent.WithLabelValues(kind.String(), "rejected").Inc()
			writeError(w, http.StatusBadRequest, err)
			return
		}

		if !controller.SendCommand(commands.New(kind, extras)) {
			commandsSent.WithLabelValues(kind.String(), "unrouted").Inc()
			writeError(w, http.StatusServiceUnavailable, errors.New("no view is listening for commands"))
			return
		}
		commandsSent.WithLabelValues(kind.String(), "sent").Inc()
		w.WriteHeader(http.StatusAccepted)
	})

	router.Get("/state", func(w http.ResponseWriter, r *http.Request) {
		state, readyToClose := controller.State()
		writeJSON(w, http.StatusOK, map[string]any{"state": state, "readyToClose": readyToClose})
	})

	router.Get("/schema", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, conference.Schema())
	})

	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return router
}

// decodeBody reads an optional JSON object. An empty body decodes to nil.
func decodeBody(r *http.Request) (map[string]any, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

var _ hostController = (*hostRuntime)(nil)
