// Package metrics exports the activity of DVFS domains as Prometheus metrics.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sarchlab/swdvfs/dvfs"
	"github.com/sarchlab/swdvfs/hooking"
)

// Metrics is a hook that updates Prometheus collectors.
type Metrics struct {
	TasksTotal   *prometheus.CounterVec
	TaskDuration *prometheus.HistogramVec
	StepFailures *prometheus.CounterVec
	RailVoltage  *prometheus.GaugeVec
	ClockRate    *prometheus.GaugeVec
	TableCommits *prometheus.CounterVec
	TableMaxFreq *prometheus.GaugeVec
	DomainOnline *prometheus.GaugeVec

	timeTeller hooking.TimeTeller

	mu       sync.Mutex
	inflight map[string]inflightTask
}

type inflightTask struct {
	kind   string
	domain string
	start  time.Time
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer, timeTeller hooking.TimeTeller) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		TasksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swdvfs_tasks_total",
			Help: "Transitions and table rebuilds by domain and result",
		}, []string{"kind", "domain", "result"}),
		TaskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swdvfs_task_duration_seconds",
			Help:    "Duration of transitions and table rebuilds",
			Buckets: []float64{1e-6, 1e-5, 1e-4, 1e-3, 0.01, 0.1},
		}, []string{"kind"}),
		StepFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swdvfs_step_failures_total",
			Help: "Failed regulator or clock programming attempts",
		}, []string{"knob", "name"}),
		RailVoltage: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "swdvfs_rail_voltage_microvolts",
			Help: "Last voltage programmed on a regulator",
		}, []string{"regulator"}),
		ClockRate: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "swdvfs_clock_rate_hertz",
			Help: "Last rate programmed on a clock",
		}, []string{"clock"}),
		TableCommits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swdvfs_table_commits_total",
			Help: "Operating-point tables committed by domain",
		}, []string{"domain"}),
		TableMaxFreq: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "swdvfs_table_max_frequency_kilohertz",
			Help: "Highest frequency of the committed table",
		}, []string{"domain"}),
		DomainOnline: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "swdvfs_domain_online",
			Help: "1 while a domain is online",
		}, []string{"domain"}),
		timeTeller: timeTeller,
		inflight:   make(map[string]inflightTask),
	}
}

func domainLabel(id dvfs.DomainID) string {
	return strconv.Itoa(int(id))
}

// Func updates the collectors from a hook invocation.
func (m *Metrics) Func(ctx hooking.HookCtx) {
	switch item := ctx.Item.(type) {
	case hooking.TaskStart:
		m.mu.Lock()
		m.inflight[item.ID] = inflightTask{
			kind:   item.Kind,
			domain: item.Where,
			start:  m.timeTeller.Now(),
		}
		m.mu.Unlock()
	case hooking.TaskEnd:
		m.endTask(item)
	case dvfs.VoltageStep:
		if item.Err != nil {
			m.StepFailures.WithLabelValues("voltage", item.Regulator).Inc()
			return
		}

		m.RailVoltage.WithLabelValues(item.Regulator).Set(float64(item.TargetUV))
	case dvfs.ClockStep:
		if item.Err != nil {
			m.StepFailures.WithLabelValues("clock", item.Clock).Inc()
			return
		}

		m.ClockRate.WithLabelValues(item.Clock).Set(float64(item.TargetHz))
	case dvfs.TableCommit:
		d := domainLabel(item.Domain)
		m.TableCommits.WithLabelValues(d).Inc()
		m.TableMaxFreq.WithLabelValues(d).Set(float64(item.Points.MaxFreqKHz()))
	case dvfs.StateChange:
		v := 0.0
		if item.Online {
			v = 1
		}

		m.DomainOnline.WithLabelValues(domainLabel(item.Domain)).Set(v)
	}
}

func (m *Metrics) endTask(end hooking.TaskEnd) {
	m.mu.Lock()
	task, ok := m.inflight[end.ID]
	delete(m.inflight, end.ID)
	m.mu.Unlock()

	if !ok {
		return
	}

	result := "ok"
	if end.Err != nil {
		result = "error"
	}

	m.TasksTotal.WithLabelValues(task.kind, task.domain, result).Inc()
	m.TaskDuration.WithLabelValues(task.kind).
		Observe(m.timeTeller.Now().Sub(task.start).Seconds())
}
