package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the collector's registry at the configured metrics path,
// negotiating OpenMetrics when the scraper asks for it.
func (c *Collector) Handler() http.Handler {
	return c.HandlerWithOptions(promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// HandlerWithOptions serves the registry with opts. Scrapes are counted in
// promhttp_metric_handler_requests_total on the same registry, and gather
// errors in promhttp_metric_handler_errors_total unless opts.Registry is set.
func (c *Collector) HandlerWithOptions(opts promhttp.HandlerOpts) http.Handler {
	if opts.Registry == nil {
		opts.Registry = c.registry
	}
	return promhttp.InstrumentMetricHandler(c.registry, promhttp.HandlerFor(c.registry, opts))
}
