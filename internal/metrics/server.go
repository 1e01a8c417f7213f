package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Albert24GG/pcom-assignments/internal/log"
)

// Serve exposes the metrics registry over HTTP. It runs in its own
// goroutine and never takes the process down: a listen failure is logged
// and metrics stay local.
func Serve(listen, path string) {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(listen, mux); err != nil {
			log.GetLogger().WithError(err).Errorf("metrics endpoint on %s stopped", listen)
		}
	}()
}
