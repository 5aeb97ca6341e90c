package metric

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/keyvault-go/internal/core/service"
)

// SnapshotSource is read once per scrape.
type SnapshotSource interface {
	Snapshot() (service.Snapshot, error)
}

// Collector exports per-user key and pair counts plus vault totals.
type Collector struct {
	src SnapshotSource

	userKeys      *prometheus.Desc
	userPairs     *prometheus.Desc
	userRemaining *prometheus.Desc
	totalKeys     *prometheus.Desc
	totalPairs    *prometheus.Desc
	sessions      *prometheus.Desc
	up            *prometheus.Desc
}

// NewCollector creates a collector reading from src.
func NewCollector(src SnapshotSource) *Collector {
	fq := func(name string) string {
		return prometheus.BuildFQName(Namespace, "vault", name)
	}
	user := []string{"user"}
	return &Collector{
		src:           src,
		userKeys:      prometheus.NewDesc(fq("user_keys"), "Unique keys held by a user.", user, nil),
		userPairs:     prometheus.NewDesc(fq("user_pairs_inserted_total"), "Pairs ever inserted for a user.", user, nil),
		userRemaining: prometheus.NewDesc(fq("user_remaining_keys"), "New keys a user can still add.", user, nil),
		totalKeys:     prometheus.NewDesc(fq("keys"), "Unique keys across all users.", nil, nil),
		totalPairs:    prometheus.NewDesc(fq("pairs_inserted_total"), "Pairs ever inserted across all users.", nil, nil),
		sessions:      prometheus.NewDesc(fq("sessions"), "Open device sessions.", nil, nil),
		up:            prometheus.NewDesc(fq("up"), "Whether the vault is open.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.userKeys
	ch <- c.userPairs
	ch <- c.userRemaining
	ch <- c.totalKeys
	ch <- c.totalPairs
	ch <- c.sessions
	ch <- c.up
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap, err := c.src.Snapshot()
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)

	for _, u := range snap.Users {
		label := strconv.Itoa(u.User)
		ch <- prometheus.MustNewConstMetric(c.userKeys, prometheus.GaugeValue, float64(u.Keys), label)
		ch <- prometheus.MustNewConstMetric(c.userPairs, prometheus.CounterValue, float64(u.Pairs), label)
		ch <- prometheus.MustNewConstMetric(c.userRemaining, prometheus.GaugeValue, float64(u.Remaining), label)
	}
	ch <- prometheus.MustNewConstMetric(c.totalKeys, prometheus.GaugeValue, float64(snap.Totals.Keys))
	ch <- prometheus.MustNewConstMetric(c.totalPairs, prometheus.CounterValue, float64(snap.Totals.Pairs))
	ch <- prometheus.MustNewConstMetric(c.sessions, prometheus.GaugeValue, float64(snap.Totals.Sessions))
}
