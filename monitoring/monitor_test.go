package monitoring

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sarchlab/swdvfs/dvfs"
	"github.com/sarchlab/swdvfs/hw"
	"github.com/sarchlab/swdvfs/metrics"
	"github.com/sarchlab/swdvfs/opp"
)

var _ = Describe("Monitor", func() {
	var (
		clk    *hw.SimClock
		server *httptest.Server
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		reg := prometheus.NewRegistry()

		c := dvfs.MakeBuilder().WithLogger(logger).Build()
		c.AcceptHook(metrics.New(reg, c.TimeTeller()))

		clk = hw.NewSimClock("cluster0", 1000000000, nil)
		Expect(c.AddDomain(dvfs.DomainSpec{
			ID:    0,
			Name:  "cluster0",
			Clock: clk,
			Regulator: hw.MakeRegulatorBuilder().
				WithName("vddarm").
				WithRange(600000, 1200000).
				WithVoltage(900000).
				Build(),
			Tables: opp.Descriptor{
				Tables: map[string][]opp.Row{
					opp.BaseKey: {
						{1800000, 1100000},
						{1000000, 900000},
					},
				},
			},
		})).To(Succeed())

		driver, err := dvfs.NewDriver(c, dvfs.ModeSoftware)
		Expect(err).NotTo(HaveOccurred())

		m := NewMonitor(driver).WithGatherer(reg).WithLogger(logger)
		server = httptest.NewServer(m.Router())
	})

	AfterEach(func() {
		server.Close()
	})

	get := func(path string) (int, string) {
		rsp, err := http.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())

		return rsp.StatusCode, string(body)
	}

	post := func(path string) int {
		rsp, err := http.Post(server.URL+path, "text/plain", nil)
		Expect(err).NotTo(HaveOccurred())
		rsp.Body.Close()

		return rsp.StatusCode
	}

	It("should list domains", func() {
		code, body := get("/api/domains")
		Expect(code).To(Equal(http.StatusOK))

		var domains []domainSummary
		Expect(json.Unmarshal([]byte(body), &domains)).To(Succeed())
		Expect(domains).To(HaveLen(1))
		Expect(domains[0].Name).To(Equal("cluster0"))
		Expect(domains[0].Online).To(BeTrue())
		Expect(domains[0].Table).To(Equal(opp.BaseKey))
	})

	It("should serialize one domain", func() {
		code, body := get("/api/domain/0")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("cluster0"))
	})

	It("should answer 404 for unknown domains", func() {
		code, _ := get("/api/domain/5")
		Expect(code).To(Equal(http.StatusNotFound))
	})

	It("should move a domain to a target", func() {
		Expect(post("/api/domain/0/target/1")).To(Equal(http.StatusNoContent))
		Expect(clk.Rate()).To(Equal(uint64(1800000000)))

		Expect(post("/api/domain/0/target/7")).To(Equal(http.StatusBadRequest))
	})

	It("should take domains offline and back", func() {
		Expect(post("/api/domain/0/offline")).To(Equal(http.StatusNoContent))

		_, body := get("/api/domains")
		Expect(body).To(ContainSubstring(`"online":false`))

		Expect(post("/api/domain/0/online")).To(Equal(http.StatusNoContent))
	})

	It("should feed temperature samples", func() {
		code, body := get("/api/domain/0/temperature/45000")
		Expect(code).To(Equal(http.StatusMethodNotAllowed))

		rsp, err := http.Post(server.URL+"/api/domain/0/temperature/45000",
			"text/plain", nil)
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		b, _ := io.ReadAll(rsp.Body)
		body = string(b)
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
		Expect(body).To(Equal(`{"max_freq_khz":0}`))
	})

	It("should report resource usage", func() {
		code, body := get("/api/resource")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("memory_size"))
	})

	It("should collect a short profile", func() {
		code, _ := get("/api/profile?ms=20")
		Expect(code).To(Equal(http.StatusOK))

		code, _ = get("/api/profile?ms=abc")
		Expect(code).To(Equal(http.StatusBadRequest))
	})

	It("should expose metrics", func() {
		Expect(post("/api/domain/0/target/1")).To(Equal(http.StatusNoContent))

		code, body := get("/metrics")
		Expect(code).To(Equal(http.StatusOK))
		Expect(strings.Contains(body, "swdvfs_tasks_total")).To(BeTrue())
		Expect(body).To(ContainSubstring(`swdvfs_clock_rate_hertz{clock="cluster0"} 1.8e+09`))
	})
})
