package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/sarchlab/swdvfs/dvfs"
	"github.com/sarchlab/swdvfs/opp"
)

func envOf(vars map[string]string) func(string) string {
	return func(k string) string {
		return vars[k]
	}
}

var _ = Describe("Config", func() {
	var c *Config

	BeforeEach(func() {
		data, err := os.ReadFile(filepath.Join("testdata", "board.yaml"))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		c, err = Parse(data)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
	})

	It("should parse the board", func() {
		gomega.Expect(c.Validate()).To(gomega.Succeed())
		gomega.Expect(c.ParsedMode()).To(gomega.Equal(dvfs.ModeSoftware))
		gomega.Expect(c.FallDelay).To(gomega.Equal(2 * time.Second))
		gomega.Expect(c.BoostDuration).To(gomega.BeZero())
		gomega.Expect(c.Hardware.CompletionTimeout).To(gomega.Equal(10 * time.Millisecond))
		gomega.Expect(c.Domains).To(gomega.HaveLen(3))

		d := c.Domains[0]
		gomega.Expect(*d.Bin).To(gomega.Equal(uint32(1)))
		gomega.Expect(d.LowVoltBin).To(gomega.BeNil())
		gomega.Expect(d.Clock.Cores).To(gomega.Equal(4))
		gomega.Expect(d.Regulator.StepUV).To(gomega.Equal(uint64(3125)))
	})

	It("should convert relations and tables", func() {
		d := c.Domains[0]

		rel := d.Relations()
		gomega.Expect(rel.VoltShareMasters).To(gomega.Equal(dvfs.BitsetOf(0, 1)))
		gomega.Expect(rel.VoltShareSlaves).To(gomega.Equal(dvfs.BitsetOf(2)))
		gomega.Expect(rel.SubDomains).To(gomega.Equal(dvfs.BitsetOf(2)))
		gomega.Expect(rel.FreqSyncHosts.Empty()).To(gomega.BeTrue())

		desc := d.Descriptor()
		want := opp.Descriptor{
			Thresholds: []int{65, 85},
			Tables: map[string][]opp.Row{
				"operating-points-1": {
					{1800000, 1100000}, {1400000, 1000000}, {1000000, 900000},
				},
				"operating-points-1-65": {{1400000, 1000000}, {1000000, 900000}},
				"operating-points-1-85": {{1000000, 900000}},
			},
		}
		gomega.Expect(cmp.Diff(want, desc)).To(gomega.BeEmpty())

		bin, err := d.Binning().Bin()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(bin).To(gomega.Equal(uint32(1)))

		_, err = c.Domains[2].Binning().Bin()
		gomega.Expect(err).To(gomega.MatchError(opp.ErrBinAbsent))
	})

	It("should fill defaults", func() {
		c, err := Parse([]byte("domains: []\n"))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(c.MaxDomains).To(gomega.Equal(dvfs.DefaultCapacity))
		gomega.Expect(c.FallDelay).To(gomega.Equal(dvfs.DefaultFallDelay))
		gomega.Expect(c.Hardware.IndexOffset).To(gomega.Equal(1))
	})

	It("should reject unknown keys", func() {
		_, err := Parse([]byte("moed: hardware\n"))
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	It("should override from the environment", func() {
		gomega.Expect(c.ApplyEnv(envOf(map[string]string{
			EnvMode:        "hardware",
			EnvFallDelay:   "500ms",
			EnvMonitorPort: "8080",
			EnvRecord:      "trace",
		}))).To(gomega.Succeed())

		gomega.Expect(c.ParsedMode()).To(gomega.Equal(dvfs.ModeHardware))
		gomega.Expect(c.FallDelay).To(gomega.Equal(500 * time.Millisecond))
		gomega.Expect(c.Monitor.Enabled).To(gomega.BeTrue())
		gomega.Expect(c.Monitor.Port).To(gomega.Equal(8080))
		gomega.Expect(c.Record).To(gomega.Equal("trace"))
	})

	It("should reject malformed environment values", func() {
		gomega.Expect(c.ApplyEnv(envOf(map[string]string{EnvFallDelay: "soon"}))).
			NotTo(gomega.Succeed())
		gomega.Expect(c.ApplyEnv(envOf(map[string]string{EnvMonitorPort: "x"}))).
			NotTo(gomega.Succeed())
	})

	It("should load .env files", func() {
		path := filepath.Join(GinkgoT().TempDir(), "test.env")
		gomega.Expect(os.WriteFile(path, []byte("SWDVFS_RECORD=from_dotenv\n"), 0o600)).
			To(gomega.Succeed())
		DeferCleanup(os.Unsetenv, EnvRecord)

		gomega.Expect(LoadDotEnv(path, filepath.Join("testdata", "missing.env"))).
			To(gomega.Succeed())
		gomega.Expect(os.Getenv(EnvRecord)).To(gomega.Equal("from_dotenv"))
	})

	It("should load and validate a file", func() {
		loaded, err := Load(filepath.Join("testdata", "board.yaml"))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(loaded.Domains).To(gomega.HaveLen(3))

		_, err = Load(filepath.Join("testdata", "missing.yaml"))
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	DescribeTable("validation",
		func(mutate func(c *Config)) {
			mutate(c)
			gomega.Expect(c.Validate()).To(gomega.MatchError(ErrInvalid))
		},
		Entry("unknown mode", func(c *Config) { c.Mode = "turbo" }),
		Entry("capacity", func(c *Config) { c.MaxDomains = 33 }),
		Entry("id beyond capacity", func(c *Config) { c.Domains[2].ID = 7 }),
		Entry("duplicate id", func(c *Config) { c.Domains[1].ID = 0 }),
		Entry("duplicate name", func(c *Config) { c.Domains[1].Name = "cluster0" }),
		Entry("undeclared relation", func(c *Config) {
			c.Domains[0].VoltShareSlaves = []int{5}
		}),
		Entry("odd row", func(c *Config) {
			c.Domains[2].Tables["operating-points"] = [][]uint32{{1000000}}
		}),
		Entry("empty table", func(c *Config) {
			c.Domains[2].Tables["operating-points"] = nil
		}),
		Entry("ascending frequencies", func(c *Config) {
			c.Domains[2].Tables["operating-points"] = [][]uint32{
				{600000, 900000}, {1000000, 900000},
			}
		}),
		Entry("unsorted thresholds", func(c *Config) {
			c.Domains[0].TempThresholds = []int{85, 65}
		}),
		Entry("inconsistent regulator", func(c *Config) {
			c.Domains[1].Regulator.MaxUV = 1300000
		}),
		Entry("missing clock rate", func(c *Config) {
			c.Domains[2].Clock.InitialHz = 0
		}),
		Entry("no domains", func(c *Config) { c.Domains = nil }),
		Entry("negative boost", func(c *Config) { c.BoostDuration = -time.Second }),
	)
})
