package counters

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var peersGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "roaming",
	Name:      "peers_registered",
	Help:      "Number of partners registered per role",
}, []string{"role"})

func ObservePeers(role string, count int) {
	if len(role) == 0 {
		return
	}
	peersGauge.With(prometheus.Labels{"role": role}).Set(float64(count))
}

var (
	requestsDesc = prometheus.NewDesc(
		"roaming_requests_total",
		"Requests issued per operation.",
		[]string{"component", "operation", "result"}, nil)
	responsesDesc = prometheus.NewDesc(
		"roaming_responses_total",
		"Responses returned per operation.",
		[]string{"component", "operation", "result"}, nil)
)

// Collector exports counter sets to prometheus. Values are read at scrape time,
// so a set belongs to exactly one collector component label.
type Collector struct {
	sets map[string]*Set
}

func NewCollector() *Collector {
	return &Collector{sets: make(map[string]*Set)}
}

// Add must be called before the collector is registered.
func (c *Collector) Add(component string, set *Set) {
	if len(component) == 0 || set == nil {
		return
	}
	c.sets[component] = set
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- requestsDesc
	ch <- responsesDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for component, set := range c.sets {
		for op, s := range set.Snapshot() {
			ch <- prometheus.MustNewConstMetric(requestsDesc, prometheus.CounterValue, float64(s.RequestsOK), component, op, "ok")
			ch <- prometheus.MustNewConstMetric(requestsDesc, prometheus.CounterValue, float64(s.RequestsError), component, op, "error")
			ch <- prometheus.MustNewConstMetric(responsesDesc, prometheus.CounterValue, float64(s.ResponsesOK), component, op, "ok")
			ch <- prometheus.MustNewConstMetric(responsesDesc, prometheus.CounterValue, float64(s.ResponsesError), component, op, "error")
		}
	}
}
