package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/treeprof/treeprof"
	"github.com/treeprof/treeprof/internal/envutil"
	"github.com/treeprof/treeprof/internal/logutil"
)

type environment struct {
	profiler *treeprof.Profiler
}

var release string

func newEnvironment() *environment {
	return &environment{profiler: treeprof.FromEnv()}
}

func (e *environment) newRouter() (*httprouter.Router, error) {
	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, err
	}

	routes := []struct {
		method  string
		path    string
		handler http.HandlerFunc
	}{
		{http.MethodGet, "/health", e.getHealth},
		{http.MethodPost, "/session/start", e.postSessionStart},
		{http.MethodPost, "/session/stop", e.postSessionStop},
		{http.MethodPost, "/demo/work", e.postDemoWork},
	}

	router := httprouter.New()

	for _, route := range routes {
		router.Handler(route.method, route.path, compress(route.handler))
	}

	return router, nil
}

func main() {
	logutil.ConfigureLogger()
	if envutil.GetEnvOrFallback("TREEPROF_DEBUG", "") == "" {
		log.Logger = log.Logger.Sample(logutil.LevelSampler{Level: zerolog.InfoLevel})
	}

	env := newEnvironment()

	err := sentry.Init(sentry.ClientOptions{
		Dsn:     os.Getenv("SENTRY_DSN"),
		Release: release,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("can't initialize sentry")
	}

	router, err := env.newRouter()
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal().Err(err).Msg("error setting up the router")
	}

	server := http.Server{
		Addr:    ":" + envutil.GetPort(),
		Handler: sentryhttp.New(sentryhttp.Options{}).Handle(router),
	}

	waitForShutdown := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c

		cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(cctx); err != nil {
			sentry.CaptureException(err)
			log.Err(err).Msg("error shutting down server")
		}

		close(waitForShutdown)
	}()

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		sentry.CaptureException(err)
		log.Err(err).Msg("server failed")
	}

	<-waitForShutdown
	sentry.Flush(5 * time.Second)
}

func (e *environment) getHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (e *environment) postSessionStart(w http.ResponseWriter, r *http.Request) {
	if !e.profiler.Enabled() {
		http.Error(w, "profiling disabled", http.StatusConflict)
		return
	}
	if e.profiler.Running() {
		http.Error(w, "session already running", http.StatusConflict)
		return
	}
	e.profiler.Start()
	w.WriteHeader(http.StatusCreated)
}

func (e *environment) postSessionStop(w http.ResponseWriter, r *http.Request) {
	if !e.profiler.Enabled() || !e.profiler.Running() {
		http.Error(w, "no session running", http.StatusConflict)
		return
	}
	report := e.profiler.StopReport()

	if r.URL.Query().Get("format") == "json" {
		b, err := report.JSON()
		if err != nil {
			hub := sentry.GetHubFromContext(r.Context())
			if hub != nil {
				hub.CaptureException(err)
			}
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	report.Render(treeprof.NewWriterSink(w))
}

func (e *environment) postDemoWork(w http.ResponseWriter, r *http.Request) {
	if !e.profiler.Running() {
		http.Error(w, "no session running", http.StatusConflict)
		return
	}
	runWorkload(e.profiler, e.profiler.Attach(r.Context()))
	w.WriteHeader(http.StatusAccepted)
}
