package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/brainquest/learning-platform/internal/config"
	"github.com/brainquest/learning-platform/internal/core/ports"
	"github.com/brainquest/learning-platform/internal/observability/metrics"
)

type Router struct {
	cfg     config.Config
	ingest  ports.ResourceIngestor
	runner  ports.IngestionRunner
	reader  ports.ResourceReader
	remover ports.ResourceRemover
	quizzes ports.QuizService
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	ingest ports.ResourceIngestor,
	runner ports.IngestionRunner,
	reader ports.ResourceReader,
	remover ports.ResourceRemover,
	quizzes ports.QuizService,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:     cfg,
		ingest:  ingest,
		runner:  runner,
		reader:  reader,
		remover: remover,
		quizzes: quizzes,
		metrics: httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/resources", rt.resources)
	mux.HandleFunc("/v1/resources/", rt.resourceByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = rateLimitMiddleware(rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) resources(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.uploadResource(w, r)
	case http.MethodGet:
		rt.listResources(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// resourceByID dispatches /v1/resources/{id} and its sub-routes.
func (rt *Router) resourceByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/resources/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "resource id is required")
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			rt.getResource(w, r, id)
		case http.MethodDelete:
			rt.deleteResource(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case "ocr-status":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		rt.ocrStatus(w, r, id)
	case "retry-ocr":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		rt.retryOCR(w, r, id)
	case "quiz":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		rt.generateQuiz(w, r, id)
	case "quizzes":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		rt.listQuizzes(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, mapErrorToHTTPStatus(err), err.Error())
}
