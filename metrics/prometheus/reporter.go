// Package prometheus provides a Prometheus metrics reporter.
// It converts framework metric records to Prometheus format and exposes
// them via an HTTP endpoint or a push gateway.
package prometheus

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linchenxuan/tyto/metrics"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	_metricsChanSize        = 8192
	_defaultMetricPath      = "/metrics"
	_defaultPushIntervalSec = 15
)

// metricType defines the type of Prometheus metric.
type metricType int

const (
	_metricTypeCounter metricType = iota
	_metricTypeGauge
)

// Config contains configuration for the Prometheus reporter.
type Config struct {
	PushAddr        string            `mapstructure:"pushAddr"`        // Push gateway address
	PushIntervalSec int               `mapstructure:"pushIntervalSec"` // Push interval in seconds
	PushJobName     string            `mapstructure:"pushJobName"`     // Push job name
	UsePush         bool              `mapstructure:"usePush"`         // Enable push mode
	MetricPath      string            `mapstructure:"metricPath"`      // Metrics HTTP path
	ExtLabels       map[string]string `mapstructure:"extLabels"`       // Labels attached to every metric
}

// metricOpt contains options for creating a Prometheus metric.
type metricOpt struct {
	subsystem   string
	name        string
	constLabels map[string]string
}

// newMetricOpt creates metric options from a metric record and external labels.
func newMetricOpt(rc *metrics.Record, extLabels map[string]string) *metricOpt {
	opts := &metricOpt{
		subsystem:   strings.ReplaceAll(rc.Metrics().Group(), ".", "_"),
		name:        strings.ReplaceAll(rc.Metrics().Name(), ".", "_"),
		constLabels: make(map[string]string, len(rc.Dimensions())+len(extLabels)),
	}

	for k, v := range extLabels {
		opts.constLabels[k] = strings.ReplaceAll(v, ".", "_")
	}

	for k, v := range rc.Dimensions() {
		opts.constLabels[k] = strings.ReplaceAll(v, ".", "_")
	}
	return opts
}

// promGauge wraps a Prometheus gauge with additional value tracking for averaging.
type promGauge struct {
	prom.Gauge
	value float64 // Accumulated value for averaging
	cnt   int     // Count of observations
}

// merge updates the gauge value based on the metric policy.
func (p *promGauge) merge(rc *metrics.Record) error {
	switch rc.Metrics().Policy() {
	case metrics.Policy_Set:
		p.Set(float64(rc.Value()))
	case metrics.Policy_Sum:
		p.Add(float64(rc.Value()))
	case metrics.Policy_Max, metrics.Policy_Min:
		p.Set(float64(rc.Value()))
	case metrics.Policy_Avg, metrics.Policy_Stopwatch:
		v, c := rc.RawData()
		p.value += float64(v)
		p.cnt += c
		if p.cnt <= 0 {
			return fmt.Errorf("metrics(%s) count invalid", rc.Metrics().Name())
		}
		p.Set(p.value / float64(p.cnt))
	default:
		return fmt.Errorf("metrics(%s) policy invalid", rc.Metrics().Name())
	}
	return nil
}

// metricWrapper wraps Prometheus metrics since Counter and Gauge interfaces are similar.
// We only need one wrapper structure to store metrics and their types.
type metricWrapper struct {
	m  prom.Metric
	mt metricType
}

// merge updates the wrapped metric with new record data.
func (m *metricWrapper) merge(rc *metrics.Record) error {
	switch m.mt {
	case _metricTypeGauge:
		if g, ok := m.m.(*promGauge); ok && g != nil {
			return g.merge(rc)
		}
	case _metricTypeCounter:
		if c, ok := m.m.(prom.Counter); ok && c != nil {
			c.Add(float64(rc.Value()))
			return nil
		}
	}
	return fmt.Errorf("prometheus metric %T cannot merge as type %d", m.m, m.mt)
}

// Reporter converts framework metrics to Prometheus format and exposes them
// via an HTTP scrape endpoint or a push gateway. Records are aggregated in a
// dedicated goroutine so the metric call path never blocks on the backend.
//
// Each Reporter owns a private Prometheus registry, so independent instances
// never collide on metric registration.
type Reporter struct {
	cfg          *Config
	extLabelsStr string
	registry     *prom.Registry
	auto         promauto.Factory
	promSvr      *http.Server
	addr         net.Addr
	pusher       *push.Pusher
	metricsChan  chan metrics.Record
	metrics      map[string]*metricWrapper
	onError      func(err error)
	dropped      atomic.Uint64
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewReporter creates a Prometheus reporter with the given configuration.
// The reporter does not collect or serve anything until Start is called.
func NewReporter(cfg *Config) *Reporter {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.MetricPath == "" {
		cfg.MetricPath = _defaultMetricPath
	}
	if cfg.UsePush && cfg.PushIntervalSec <= 0 {
		cfg.PushIntervalSec = _defaultPushIntervalSec
	}

	ctx, cancel := context.WithCancel(context.Background())
	registry := prom.NewRegistry()
	return &Reporter{
		cfg:          cfg,
		extLabelsStr: buildExtLabelsStr(cfg.ExtLabels),
		registry:     registry,
		auto:         promauto.With(registry),
		metricsChan:  make(chan metrics.Record, _metricsChanSize),
		metrics:      map[string]*metricWrapper{},
		onError: func(err error) {
			fmt.Fprintf(os.Stderr, "tyto/metrics prometheus: %v\n", err)
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetErrorFunc replaces the internal failure callback. The reporter runs
// inside the metric call path of the logging framework and must never log
// through it, so failures surface here instead. Call before Start.
func (x *Reporter) SetErrorFunc(fn func(err error)) {
	if fn != nil {
		x.onError = fn
	}
}

// FactoryName returns the plugin factory name that produced this reporter.
func (x *Reporter) FactoryName() string {
	return "prometheus"
}

// Report queues a metric record for aggregation. It never blocks: when the
// queue is full the record is dropped and the drop is counted.
func (x *Reporter) Report(r metrics.Record) {
	select {
	case x.metricsChan <- r:
	default:
		if x.dropped.Add(1) == 1 {
			x.onError(fmt.Errorf("metrics chan full, dropping records"))
		}
	}
}

// Dropped returns the number of records discarded because the queue was full.
func (x *Reporter) Dropped() uint64 {
	return x.dropped.Load()
}

// Addr returns the address the scrape endpoint is listening on.
// Valid only after Start has returned successfully.
func (x *Reporter) Addr() net.Addr {
	return x.addr
}

// Start launches the aggregation goroutine, the optional push loop and the
// HTTP scrape endpoint on a random local port.
func (x *Reporter) Start() error {
	x.wg.Add(1)
	go x.aggregate()

	if x.cfg.UsePush {
		x.startPusher()
	}

	addr, err := x.startHTTPSvr()
	if err != nil {
		x.Stop()
		return err
	}
	x.addr = addr
	return nil
}

// Stop shuts down the reporter and waits for its goroutines to exit.
// Records still queued at shutdown are discarded.
func (x *Reporter) Stop() {
	if x.cancel != nil {
		x.cancel()
		x.cancel = nil
	}

	if x.promSvr != nil {
		if err := x.promSvr.Close(); err != nil {
			x.onError(fmt.Errorf("prometheus http server close: %w", err))
		}
		x.promSvr = nil
	}

	x.wg.Wait()
}

func (x *Reporter) startPusher() {
	x.pusher = push.New(x.cfg.PushAddr, x.cfg.PushJobName).Gatherer(x.registry)
	x.wg.Add(1)
	go func() {
		defer x.wg.Done()
		t := time.NewTicker(time.Second * time.Duration(x.cfg.PushIntervalSec))
		defer t.Stop()
		for {
			select {
			case <-x.ctx.Done():
				return
			case <-t.C:
				newCtx, cancel := context.WithTimeout(x.ctx, time.Second*5)
				if err := x.pusher.PushContext(newCtx); err != nil {
					x.onError(fmt.Errorf("prometheus push: %w", err))
				}
				cancel()
			}
		}
	}()
}

// startHTTPSvr starts the Prometheus HTTP server for exposing metrics.
// It creates a TCP listener on a random available port, sets up the metrics
// endpoint handler and starts serving requests. Returns the network address
// the server is listening on, or an error if setup fails.
func (x *Reporter) startHTTPSvr() (net.Addr, error) {
	l, err := net.ListenTCP("tcp", &net.TCPAddr{IP: nil, Port: 0}) //nolint:gosec
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(x.cfg.MetricPath, promhttp.HandlerFor(x.registry, promhttp.HandlerOpts{}))

	x.promSvr = &http.Server{Handler: mux} //nolint:gosec
	x.wg.Add(1)
	go func(svr *http.Server) {
		defer x.wg.Done()
		if err := svr.Serve(l); err != nil && err != http.ErrServerClosed {
			x.onError(fmt.Errorf("prometheus http serve: %w", err))
		}
	}(x.promSvr)

	return l.Addr(), nil
}

// aggregate continuously processes incoming metric records from the channel,
// merging them into the internal storage until the context is cancelled.
func (x *Reporter) aggregate() {
	defer x.wg.Done()
	for {
		select {
		case rc := <-x.metricsChan:
			x.safeMerge(&rc)
		case <-x.ctx.Done():
			return
		}
	}
}

// safeMerge isolates the aggregation loop from registration panics raised by
// the Prometheus client on malformed metric or label names.
func (x *Reporter) safeMerge(rc *metrics.Record) {
	defer func() {
		if r := recover(); r != nil {
			x.onError(fmt.Errorf("prometheus merge panic: %v", r))
		}
	}()
	if err := x.merge(rc); err != nil {
		x.onError(err)
	}
}

// merge combines a metric record into the internal storage. It either updates
// an existing metric with the same key or creates a new one based on the
// metric kind (Counter, StopWatch or Gauge).
func (x *Reporter) merge(rc *metrics.Record) error {
	key := x.getFullName(rc)
	if m, exist := x.metrics[key]; exist {
		return m.merge(rc)
	}
	switch rc.Metrics().(type) {
	case metrics.Counter:
		x.metrics[key] = x.newPromCounter(rc)
	case metrics.StopWatch, metrics.Gauge:
		x.metrics[key] = x.newPromGauge(rc)
	default:
		return fmt.Errorf("prometheus merge unknown metric type %T", rc.Metrics())
	}
	return nil
}

// newPromCounter creates a new Prometheus counter from a metric record.
func (x *Reporter) newPromCounter(rc *metrics.Record) *metricWrapper {
	o := newMetricOpt(rc, x.cfg.ExtLabels)
	c := x.auto.NewCounter(prom.CounterOpts{
		Subsystem:   o.subsystem,
		Name:        o.name,
		ConstLabels: o.constLabels,
	})
	c.Add(float64(rc.Value()))
	return &metricWrapper{
		m:  c,
		mt: _metricTypeCounter,
	}
}

// newPromGauge creates a new Prometheus gauge wrapper from a metric record.
func (x *Reporter) newPromGauge(rc *metrics.Record) *metricWrapper {
	o := newMetricOpt(rc, x.cfg.ExtLabels)
	g := &promGauge{
		Gauge: x.auto.NewGauge(prom.GaugeOpts{
			Subsystem:   o.subsystem,
			Name:        o.name,
			ConstLabels: o.constLabels,
		}),
	}
	_ = g.merge(rc)

	return &metricWrapper{
		m:  g,
		mt: _metricTypeGauge,
	}
}

// getFullName generates a unique key for a metrics record.
// It combines the metric group, name, external labels, and dimensions into a
// single string to uniquely identify the metric for storage and retrieval.
func (x *Reporter) getFullName(rc *metrics.Record) string {
	var sb strings.Builder
	sb.Grow(256)
	sb.WriteString(rc.Metrics().Group())
	sb.WriteString("*")
	sb.WriteString(rc.Metrics().Name())
	sb.WriteString("*")
	sb.WriteString(x.extLabelsStr)
	type kv struct {
		key   string
		value string
	}
	keys := make([]*kv, 0, len(rc.Dimensions()))
	for k, v := range rc.Dimensions() {
		if _, ok := x.cfg.ExtLabels[k]; ok {
			continue
		}
		keys = append(keys, &kv{
			key:   k,
			value: v,
		})
	}
	sort.Slice(keys, func(a, b int) bool {
		return keys[a].key < keys[b].key
	})
	for _, v := range keys {
		sb.WriteString(v.key)
		sb.WriteString(":")
		sb.WriteString(v.value)
		sb.WriteString(",")
	}
	return sb.String()
}

// buildExtLabelsStr flattens external labels into a stable, sorted string so
// they can participate in metric identity keys.
func buildExtLabelsStr(extLabels map[string]string) string {
	if len(extLabels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(extLabels))
	for k := range extLabels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(":")
		sb.WriteString(extLabels[k])
		sb.WriteString(",")
	}
	return sb.String()
}
