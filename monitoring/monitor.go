// Package monitoring serves the state of a DVFS engine over HTTP and lets
// operators drive it.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/swdvfs/dvfs"
)

// Monitor turns a DVFS driver into a server.
type Monitor struct {
	driver      *dvfs.Driver
	gatherer    prometheus.Gatherer
	portNumber  int
	openBrowser bool
	logger      *slog.Logger

	server *http.Server
}

// NewMonitor creates a Monitor for a driver.
func NewMonitor(driver *dvfs.Driver) *Monitor {
	return &Monitor{
		driver: driver,
		logger: slog.Default(),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithGatherer exposes the metrics of g at /metrics.
func (m *Monitor) WithGatherer(g prometheus.Gatherer) *Monitor {
	m.gatherer = g
	return m
}

// WithBrowser makes StartServer open the monitor in a browser.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(l *slog.Logger) *Monitor {
	m.logger = l
	return m
}

// Router returns the routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/domains", m.listDomains).Methods(http.MethodGet)
	r.HandleFunc("/api/domain/{id:[0-9]+}", m.domainDetails).
		Methods(http.MethodGet)
	r.HandleFunc("/api/domain/{id:[0-9]+}/target/{index:[0-9]+}", m.setTarget).
		Methods(http.MethodPost)
	r.HandleFunc("/api/domain/{id:[0-9]+}/online", m.online).
		Methods(http.MethodPost)
	r.HandleFunc("/api/domain/{id:[0-9]+}/offline", m.offline).
		Methods(http.MethodPost)
	r.HandleFunc("/api/domain/{id:[0-9]+}/temperature/{milliC:-?[0-9]+}",
		m.temperature).Methods(http.MethodPost)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)

	if m.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// StartServer listens and serves until ctx is done. It returns the address
// the server listens on.
func (m *Monitor) StartServer(ctx context.Context) (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring DVFS engine with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor stopped", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), time.Second)
		defer cancel()

		_ = m.server.Shutdown(shutdownCtx)
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			m.logger.Warn("cannot open browser", "url", url, "err", err)
		}
	}

	return url, nil
}

type domainSummary struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Online bool   `json:"online"`
	Table  string `json:"table"`
	FreqHz uint64 `json:"freq_hz"`
	VoltUV uint64 `json:"volt_uv"`
	TempC  int    `json:"temp_c"`
}

func (m *Monitor) listDomains(w http.ResponseWriter, _ *http.Request) {
	infos := m.driver.Coordinator().Domains()

	rsp := make([]domainSummary, 0, len(infos))
	for _, info := range infos {
		rsp = append(rsp, domainSummary{
			ID:     int(info.ID),
			Name:   info.Name,
			Online: info.Online,
			Table:  info.SelectionKey,
			FreqHz: info.FreqReqHz,
			VoltUV: info.VoltReqUV,
			TempC:  info.TempNow,
		})
	}

	writeJSON(w, rsp)
}

func domainID(r *http.Request) dvfs.DomainID {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	return dvfs.DomainID(id)
}

func (m *Monitor) domainDetails(w http.ResponseWriter, r *http.Request) {
	info, err := m.driver.Coordinator().Domain(domainID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&info)
	serializer.SetMaxDepth(2)

	if err := serializer.Serialize(w); err != nil {
		m.logger.Error("cannot serialize domain", "domain", info.ID, "err", err)
	}
}

func (m *Monitor) setTarget(w http.ResponseWriter, r *http.Request) {
	index, _ := strconv.Atoi(mux.Vars(r)["index"])

	err := m.driver.SetTarget(domainID(r), index)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) online(w http.ResponseWriter, r *http.Request) {
	if err := m.driver.Coordinator().OnDomainOnline(domainID(r)); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) offline(w http.ResponseWriter, r *http.Request) {
	if err := m.driver.Coordinator().OnDomainOffline(domainID(r)); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type temperatureRsp struct {
	MaxFreqKHz uint32 `json:"max_freq_khz"`
}

func (m *Monitor) temperature(w http.ResponseWriter, r *http.Request) {
	milliC, err := strconv.Atoi(mux.Vars(r)["milliC"])
	if err != nil {
		writeError(w, err)
		return
	}

	ceiling := m.driver.Coordinator().OnTemperatureSample(domainID(r), milliC)

	writeJSON(w, temperatureRsp{MaxFreqKHz: ceiling})
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		writeError(w, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		writeError(w, err)
		return
	}

	mem, err := proc.MemoryInfo()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: mem.RSS,
	})
}

// collectProfile samples the CPU for ?ms= milliseconds, one second by
// default.
func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	d := time.Second

	if ms := r.URL.Query().Get("ms"); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil || n <= 0 {
			http.Error(w, "invalid duration "+ms, http.StatusBadRequest)
			return
		}

		d = time.Duration(n) * time.Millisecond
	}

	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(d)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(bytes)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, dvfs.ErrUnknownDomain):
		status = http.StatusNotFound
	case errors.Is(err, dvfs.ErrInvalidIndex),
		errors.Is(err, dvfs.ErrNoMasters):
		status = http.StatusBadRequest
	case errors.Is(err, dvfs.ErrBusy):
		status = http.StatusConflict
	}

	http.Error(w, err.Error(), status)
}
