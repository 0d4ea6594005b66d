package router

import (
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account"
)

// Config controls how the HTTP surface is mounted.
type Config struct {
	Addr string
	// BasePath prefixes every route except /metrics, e.g. "/pitchfork-api-core".
	BasePath       string
	AllowedOrigins []string
}

// ConfigFromEnv reads HTTP_ADDR, HTTP_BASE_PATH and CORS_ALLOWED_ORIGINS.
func ConfigFromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	var origins []string
	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return Config{
		Addr:           addr,
		BasePath:       strings.TrimRight(os.Getenv("HTTP_BASE_PATH"), "/"),
		AllowedOrigins: origins,
	}
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, accounts *account.Handler, cfg Config) http.Handler {
	mux := http.NewServeMux()
	base := cfg.BasePath

	// health
	mux.HandleFunc("GET "+base+"/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// account routes
	mux.HandleFunc("POST "+base+"/register", accounts.Register)
	mux.HandleFunc("POST "+base+"/login", accounts.Login)
	mux.HandleFunc("GET "+base+"/accounts/{id}", accounts.Get)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := newMetrics(reg)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// metrics must wrap the mux directly to see the matched pattern
	var handler http.Handler = m.middleware(mux)
	handler = SecurityHeadersMiddleware()(handler)
	handler = CORSMiddleware(cfg.AllowedOrigins)(handler)
	handler = LoggingMiddleware(logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}
