package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/calendify/server/internal/api/handlers"
	"github.com/calendify/server/internal/api/middleware"
	"github.com/calendify/server/internal/domain/events"
	"github.com/calendify/server/internal/metrics"
	"github.com/rs/zerolog"
)

// EventsPath is the single resource path of the public API.
const EventsPath = "/api/events"

type RouterDeps struct {
	Logger   zerolog.Logger
	Events   *events.Service
	Database handlers.Database
	Build    BuildInfo
}

// NewRouter mounts the events resource and the operational endpoints behind
// the shared middleware chain.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	health := handlers.NewHealthChecker(deps.Database, deps.Build.Version, deps.Build.GitCommit)
	mux.Handle("/healthz", getOnly(handlers.Healthz()))
	mux.Handle("/readyz", getOnly(health.Readyz()))
	mux.Handle("/version", getOnly(VersionHandler(deps.Build)))
	mux.Handle("/metrics", getOnly(metrics.Handler()))

	mux.Handle(EventsPath, handlers.NewEventsHandler(deps.Events))

	return chain(mux,
		middleware.CorrelationID(deps.Logger),
		middleware.Tracing,
		metrics.HTTPMiddleware,
		middleware.RequestLogging(deps.Logger),
		middleware.CORS,
		middleware.RequestSize(middleware.DefaultMaxBodySize),
	)
}

// chain wraps h so that the first middleware listed is the outermost.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func getOnly(h http.Handler) http.Handler {
	return methodMux(map[string]http.Handler{http.MethodGet: h})
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
