package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type HealthFunc func(ctx context.Context) error

// HealthCheck é uma dependência verificada pelo /healthz (postgres, redis...)
type HealthCheck struct {
	Name string
	Fn   HealthFunc
}

// Handler monta o mux de /metrics e /healthz; a primeira dependência com falha responde 503
func Handler(checks ...HealthCheck) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for _, c := range checks {
			if err := c.Fn(ctx); err != nil {
				http.Error(w, fmt.Sprintf("%s not healthy: %v", c.Name, err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// StartMetricsServer sobe /metrics e /healthz numa goroutine; o chamador faz Shutdown
func StartMetricsServer(log *zap.Logger, port string, checks ...HealthCheck) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           Handler(checks...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics/health listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	return srv
}
