package server

import (
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/utils/errutil"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
)

type Server struct {
	mux *chi.Mux
}

func safeWrite(w http.ResponseWriter, code int, body []byte) {
	w.WriteHeader(code)

	// nosemgrep: go.lang.security.audit.xss.no-direct-write-to-responsewriter.no-direct-write-to-responsewriter
	// Why: The response data is not from user input
	if _, err := w.Write(body); err != nil {
		logging.Default().Error("fail to write response", slog.Any("error", err))
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		errutil.HandleError(r.Context(), "fail to marshal response", err)
		safeWrite(w, http.StatusInternalServerError, []byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	safeWrite(w, http.StatusOK, raw)
}

type config struct {
	gatherer prometheus.Gatherer
}

type Option func(*config)

// WithMetrics exposes gatherer on /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(cfg *config) {
		cfg.gatherer = gatherer
	}
}

func New(uc interfaces.UseCase, options ...Option) *Server {
	cfg := &config{}
	for _, opt := range options {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(preProcess)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		safeWrite(w, http.StatusOK, []byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/heads", func(w http.ResponseWriter, r *http.Request) {
			history, err := uc.ListBranchHistory(r.Context())
			if err != nil {
				errutil.HandleError(r.Context(), "fail to list branch history", err)
				safeWrite(w, http.StatusInternalServerError, []byte(`{"error":"internal error"}`))
				return
			}
			writeJSON(w, r, history)
		})
		r.Get("/workqueue", func(w http.ResponseWriter, r *http.Request) {
			items, err := uc.ListWorkQueue(r.Context())
			if err != nil {
				errutil.HandleError(r.Context(), "fail to list work queue", err)
				safeWrite(w, http.StatusInternalServerError, []byte(`{"error":"internal error"}`))
				return
			}
			writeJSON(w, r, items)
		})
	})

	if cfg.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))
	}

	return &Server{
		mux: r,
	}
}

func (x *Server) Mux() *chi.Mux {
	return x.mux
}
