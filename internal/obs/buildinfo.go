package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var buildInfoOnce sync.Once

// InitBuildInfo publishes a constant gauge describing the running binary.
// Version and commit go into labels so dashboards can join on them.
func InitBuildInfo(version, commit string) {
	buildInfoOnce.Do(func() {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata of the running sentra-api binary.",
			ConstLabels: prometheus.Labels{
				"version": version,
				"commit":  commit,
			},
		})
		g.Set(1)
		prometheus.MustRegister(g)
	})
}
