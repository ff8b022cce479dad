// Package metrics is a small Prometheus-compatible metrics registry
// built on the standard library. It supports counters and histograms
// with labels baked into the metric name, rendered in the Prometheus
// text exposition format.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets are the default histogram buckets (seconds).
var DefaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Counter is a monotonically increasing counter.
type Counter struct{ val atomic.Int64 }

func (c *Counter) Inc()         { c.val.Add(1) }
func (c *Counter) Add(n int64)  { c.val.Add(n) }
func (c *Counter) Value() int64 { return c.val.Load() }

// Histogram tracks value distributions over fixed buckets.
type Histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, b := range h.buckets {
		if v <= b {
			h.counts[i]++
			break
		}
	}
}

// Since observes the duration elapsed since t, in seconds.
func (h *Histogram) Since(t time.Time) {
	h.Observe(time.Since(t).Seconds())
}

func (h *Histogram) snapshot() ([]float64, []uint64, float64, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := make([]uint64, len(h.counts))
	copy(c, h.counts)
	return h.buckets, c, h.sum, h.count
}

// Registry holds named metrics. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	histograms map[string]*Histogram
	help       map[string]string
	types      map[string]string
	order      []string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		histograms: make(map[string]*Histogram),
		help:       make(map[string]string),
		types:      make(map[string]string),
	}
}

func (r *Registry) track(base, typ, help string) {
	if _, ok := r.types[base]; !ok {
		r.order = append(r.order, base)
	}
	r.types[base] = typ
	if help != "" {
		r.help[base] = help
	}
}

// Counter returns (or creates) a counter. Labels are baked into the
// name via WithLabels, so each label combination is a distinct series.
func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := &Counter{}
	r.counters[name] = c
	r.track(baseName(name), "counter", help)
	return c
}

// Histogram returns (or creates) a histogram. Nil buckets means DefaultBuckets.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[name]; ok {
		return h
	}
	b := make([]float64, len(buckets))
	copy(b, buckets)
	sort.Float64s(b)
	h := &Histogram{buckets: b, counts: make([]uint64, len(b))}
	r.histograms[name] = h
	r.track(baseName(name), "histogram", help)
	return h
}

// WithLabels appends label pairs to a metric name:
// WithLabels("foo", "k", "v") => `foo{k="v"}`.
func WithLabels(name string, kvs ...string) string {
	if len(kvs) == 0 || len(kvs)%2 != 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i := 0; i < len(kvs); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", kvs[i], kvs[i+1])
	}
	b.WriteByte('}')
	return b.String()
}

func baseName(name string) string {
	if i := strings.IndexByte(name, '{'); i != -1 {
		return name[:i]
	}
	return name
}

// labelSuffix returns the label body of name prefixed with a comma, or "".
func labelSuffix(name string) string {
	i := strings.IndexByte(name, '{')
	if i == -1 {
		return ""
	}
	inner := name[i+1 : len(name)-1]
	if inner == "" {
		return ""
	}
	return "," + inner
}

// Render produces the Prometheus text exposition format.
func (r *Registry) Render() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for _, base := range r.order {
		if h, ok := r.help[base]; ok {
			fmt.Fprintf(&b, "# HELP %s %s\n", base, h)
		}
		typ := r.types[base]
		fmt.Fprintf(&b, "# TYPE %s %s\n", base, typ)

		switch typ {
		case "counter":
			for _, n := range seriesFor(r.counters, base) {
				fmt.Fprintf(&b, "%s %d\n", n, r.counters[n].Value())
			}
		case "histogram":
			for _, n := range seriesFor(r.histograms, base) {
				buckets, counts, sum, count := r.histograms[n].snapshot()
				labels := labelSuffix(n)
				cumulative := uint64(0)
				for i, bk := range buckets {
					cumulative += counts[i]
					fmt.Fprintf(&b, "%s_bucket{le=\"%g\"%s} %d\n", base, bk, labels, cumulative)
				}
				fmt.Fprintf(&b, "%s_bucket{le=\"+Inf\"%s} %d\n", base, labels, count)
				wrapped := ""
				if labels != "" {
					wrapped = "{" + labels[1:] + "}"
				}
				fmt.Fprintf(&b, "%s_sum%s %g\n", base, wrapped, sum)
				fmt.Fprintf(&b, "%s_count%s %d\n", base, wrapped, count)
			}
		}
	}
	return b.String()
}

// seriesFor returns all series names in m sharing a base name, sorted.
func seriesFor[M any](m map[string]M, base string) []string {
	var out []string
	for n := range m {
		if baseName(n) == base {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Handler serves the rendered metrics.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(r.Render()))
	})
}
