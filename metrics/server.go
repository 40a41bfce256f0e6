package metrics

import (
	"evroaming/internal/config"
	"evroaming/metrics/counters"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the process-wide metrics together with the counter sets of collector.
func Handler(collector *counters.Collector) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if collector != nil {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}
	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer, registry}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}), nil
}

func Listen(conf *config.Config, collector *counters.Collector) error {
	if !conf.Metrics.Enabled {
		return nil
	}
	handler, err := Handler(collector)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	address := conf.Metrics.BindIP + ":" + conf.Metrics.Port
	log.Println("starting metrics server on " + address)
	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
