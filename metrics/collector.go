// Package metrics exports the health of stored containers to Prometheus.
package metrics

import (
	"strconv"

	"github.com/andreyvit/partkv"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector reads every container on each scrape. Values are never decoded,
// so a scrape costs one read transaction plus the collection records.
type Collector struct {
	db *partkv.DB

	size         *prometheus.Desc
	maxSize      *prometheus.Desc
	capacity     *prometheus.Desc
	used         *prometheus.Desc
	usage        *prometheus.Desc
	status       *prometheus.Desc
	groups       *prometheus.Desc
	partitions   *prometheus.Desc
	partUsage    *prometheus.Desc
	dataBytes    *prometheus.Desc
	transactions *prometheus.Desc
	storageBytes *prometheus.Desc
	scrapeErrors prometheus.Counter
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector for db. namespace defaults to "partkv".
func NewCollector(db *partkv.DB, namespace string) *Collector {
	if namespace == "" {
		namespace = "partkv"
	}
	containerDesc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "container", name), help, []string{"container"}, nil)
	}
	return &Collector{
		db:         db,
		size:       containerDesc("size", "Keys stored across all groups; keys being migrated count once per group."),
		maxSize:    containerDesc("max_size", "Sum of collection limits across all groups."),
		capacity:   containerDesc("capacity", "Key limit of the primary group."),
		used:       containerDesc("used", "Keys stored in the primary group."),
		usage:      containerDesc("usage_ratio", "Used divided by capacity."),
		status:     containerDesc("status", "Health level of the primary group: 0, 60, 70, 80 or 90."),
		groups:     containerDesc("groups", "Attached groups; more than 1 means a migration is in progress."),
		partitions: containerDesc("partitions", "Partitions of the primary group."),
		dataBytes:  containerDesc("data_bytes", "Bytes used by the container records."),
		partUsage: prometheus.NewDesc(prometheus.BuildFQName(namespace, "container", "partition_usage_ratio"),
			"Usage of each collection of the primary group.", []string{"container", "partition"}, nil),
		transactions: prometheus.NewDesc(prometheus.BuildFQName(namespace, "db", "transactions_total"),
			"Transactions started, by mode.", []string{"mode"}, nil),
		storageBytes: prometheus.NewDesc(prometheus.BuildFQName(namespace, "db", "size_bytes"),
			"Size of the database file as of the last transaction.", nil, nil),
		scrapeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "errors_total",
			Help:      "Scrapes that failed to read a container.",
		}),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{c.size, c.maxSize, c.capacity, c.used, c.usage, c.status, c.groups, c.partitions, c.partUsage, c.dataBytes, c.transactions, c.storageBytes} {
		ch <- d
	}
	c.scrapeErrors.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var stats []*partkv.ContainerStats
	err := c.db.Tx(false, func(tx *partkv.Tx) error {
		for _, name := range partkv.Names(tx) {
			st, err := partkv.Stats(tx, name)
			if err != nil {
				return err
			}
			stats = append(stats, st)
		}
		return nil
	})
	if err != nil {
		c.scrapeErrors.Inc()
	}

	for _, st := range stats {
		gauge := func(d *prometheus.Desc, v float64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, st.Name)
		}
		gauge(c.size, float64(st.Size))
		gauge(c.maxSize, float64(st.MaxSize))
		gauge(c.capacity, float64(st.Capacity))
		gauge(c.used, float64(st.Used))
		gauge(c.usage, st.Usage)
		gauge(c.status, float64(st.Status))
		gauge(c.groups, float64(len(st.Groups)))
		gauge(c.partitions, float64(st.Groups[0].Partitions))
		gauge(c.dataBytes, float64(st.DataSize))
		for i, cs := range st.Groups[0].Collections {
			ch <- prometheus.MustNewConstMetric(c.partUsage, prometheus.GaugeValue, cs.Usage, st.Name, strconv.Itoa(i))
		}
	}

	ch <- prometheus.MustNewConstMetric(c.transactions, prometheus.CounterValue, float64(c.db.ReadCount.Load()), "read")
	ch <- prometheus.MustNewConstMetric(c.transactions, prometheus.CounterValue, float64(c.db.WriteCount.Load()), "write")
	ch <- prometheus.MustNewConstMetric(c.storageBytes, prometheus.GaugeValue, float64(c.db.Size()))
	c.scrapeErrors.Collect(ch)
}
