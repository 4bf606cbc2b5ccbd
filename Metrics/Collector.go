// Package Metrics exports the Stats of collections and reclamation domains to Prometheus.
package Metrics

import (
	"sort"
	"sync"

	"github.com/g-m-twostay/horde"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector reports every registered collection under a "collection" label and every registered Domain under a "domain" label. Stats are read at scrape time.
type Collector struct {
	mu      sync.RWMutex
	sources map[string]horde.StatsSource
	domains map[string]*horde.Domain

	length, capacity, segments, generations, retired, reclaimed, maxProbe *prometheus.Desc
	epoch, activePins, pinSlots, pending, domainReclaimed                  *prometheus.Desc
}

// NewCollector returns an empty Collector whose metric names start with namespace.
func NewCollector(namespace string) *Collector {
	coll := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "collection", name), help, []string{"collection"}, nil)
	}
	dom := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "domain", name), help, []string{"domain"}, nil)
	}
	return &Collector{
		sources:         make(map[string]horde.StatsSource),
		domains:         make(map[string]*horde.Domain),
		length:          coll("len", "Number of published elements."),
		capacity:        coll("capacity", "Number of elements that fit in allocated storage."),
		segments:        coll("segments", "Number of allocated segments or chunks."),
		generations:     coll("generations_total", "Number of table generations published."),
		retired:         coll("retired_total", "Number of table generations retired."),
		reclaimed:       coll("reclaimed_total", "Number of retired table generations recycled."),
		maxProbe:        coll("max_probe", "Longest probe distance in the current table generation."),
		epoch:           dom("epoch", "Current reclamation epoch."),
		activePins:      dom("active_pins", "Number of live pins."),
		pinSlots:        dom("pin_slots", "Number of pin registry slots allocated."),
		pending:         dom("pending", "Number of retirements waiting for pins to be released."),
		domainReclaimed: dom("reclaimed_total", "Number of retirements run."),
	}
}

// Register adds or replaces the collection reported as name.
func (c *Collector) Register(name string, s horde.StatsSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[name] = s
}

// RegisterDomain adds or replaces the domain reported as name.
func (c *Collector) RegisterDomain(name string, d *horde.Domain) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.domains[name] = d
}

// Unregister drops the collection or domain reported as name.
func (c *Collector) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, name)
	delete(c.domains, name)
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{c.length, c.capacity, c.segments, c.generations, c.retired, c.reclaimed, c.maxProbe, c.epoch, c.activePins, c.pinSlots, c.pending, c.domainReclaimed} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, name := range sortedKeys(c.sources) {
		s := c.sources[name].Stats()
		ch <- prometheus.MustNewConstMetric(c.length, prometheus.GaugeValue, float64(s.Len), name)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity), name)
		ch <- prometheus.MustNewConstMetric(c.segments, prometheus.GaugeValue, float64(s.Segments), name)
		ch <- prometheus.MustNewConstMetric(c.generations, prometheus.CounterValue, float64(s.Generations), name)
		ch <- prometheus.MustNewConstMetric(c.retired, prometheus.CounterValue, float64(s.Retired), name)
		ch <- prometheus.MustNewConstMetric(c.reclaimed, prometheus.CounterValue, float64(s.Reclaimed), name)
		ch <- prometheus.MustNewConstMetric(c.maxProbe, prometheus.GaugeValue, float64(s.MaxProbe), name)
	}
	for _, name := range sortedKeys(c.domains) {
		s := c.domains[name].Stats()
		ch <- prometheus.MustNewConstMetric(c.epoch, prometheus.GaugeValue, float64(s.Epoch), name)
		ch <- prometheus.MustNewConstMetric(c.activePins, prometheus.GaugeValue, float64(s.ActivePins), name)
		ch <- prometheus.MustNewConstMetric(c.pinSlots, prometheus.GaugeValue, float64(s.PinSlots), name)
		ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(s.Pending), name)
		ch <- prometheus.MustNewConstMetric(c.domainReclaimed, prometheus.CounterValue, float64(s.Reclaimed), name)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ prometheus.Collector = new(Collector)
