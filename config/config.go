// Package config loads the description of the DVFS domains of a board.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/swdvfs/dvfs"
	"github.com/sarchlab/swdvfs/opp"
)

// Environment variables that override the file.
const (
	EnvMode        = "SWDVFS_MODE"
	EnvFallDelay   = "SWDVFS_FALL_DELAY"
	EnvMonitorPort = "SWDVFS_MONITOR_PORT"
	EnvRecord      = "SWDVFS_RECORD"
)

// ErrInvalid is matched by every validation error.
var ErrInvalid = errors.New("config: invalid")

// Config is the description of a board.
type Config struct {
	Mode       string        `yaml:"mode"`
	FallDelay  time.Duration `yaml:"fall_delay"`
	MaxDomains int           `yaml:"max_domains"`
	SocVersion string        `yaml:"soc_version"`
	Hardware   Hardware      `yaml:"hardware"`
	Monitor    Monitor       `yaml:"monitor"`

	// BoostDuration keeps every domain at its boot point for a while after
	// start. Zero disables the boost window.
	BoostDuration time.Duration `yaml:"boost_duration"`

	// Record names the trace database, without extension. Empty disables
	// recording.
	Record string `yaml:"record"`

	Domains []Domain `yaml:"domains"`
}

// Hardware configures the hardware sequencer.
type Hardware struct {
	IndexOffset       int           `yaml:"index_offset"`
	CompletionTimeout time.Duration `yaml:"completion_timeout"`
}

// Monitor configures the monitoring server.
type Monitor struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
	Browser bool `yaml:"browser"`
}

// Domain describes one DVFS domain.
type Domain struct {
	ID               int           `yaml:"id"`
	Name             string        `yaml:"name"`
	Leaf             bool          `yaml:"leaf"`
	CPUs             []int         `yaml:"cpus"`
	MultiVersion     bool          `yaml:"multi_version"`
	Bin              *uint32       `yaml:"bin"`
	LowVoltBin       *uint32       `yaml:"low_volt_bin"`
	TempThresholds   []int         `yaml:"temp_thresholds"`
	InitialTempC     int           `yaml:"initial_temp_c"`
	VoltageTolerance uint32        `yaml:"voltage_tolerance"`
	Latency          time.Duration `yaml:"transition_latency"`

	// ExternalVoteUV is the vote another consumer of the rail starts with.
	ExternalVoteUV uint64 `yaml:"external_vote_uv"`

	VoltShareMasters []int `yaml:"volt_share_masters"`
	VoltShareHosts   []int `yaml:"volt_share_hosts"`
	VoltShareSlaves  []int `yaml:"volt_share_slaves"`
	FreqSyncHosts    []int `yaml:"freq_sync_hosts"`
	FreqSyncSlaves   []int `yaml:"freq_sync_slaves"`
	SubDomains       []int `yaml:"sub_domains"`

	Clock     Clock     `yaml:"clock"`
	Regulator Regulator `yaml:"regulator"`

	Tables map[string][][]uint32 `yaml:"tables"`
}

// Clock describes the clock model of a domain.
type Clock struct {
	InitialHz   uint64 `yaml:"initial_hz"`
	LowParentHz uint64 `yaml:"low_parent_hz"`
	HighConst   bool   `yaml:"high_const"`
	Cores       int    `yaml:"cores"`
}

// Regulator describes a regulator model. Domains naming the same regulator
// share it.
type Regulator struct {
	Name        string `yaml:"name"`
	MinUV       uint64 `yaml:"min_uv"`
	MaxUV       uint64 `yaml:"max_uv"`
	StepUV      uint64 `yaml:"step_uv"`
	InitialUV   uint64 `yaml:"initial_uv"`
	RampUVPerUs uint64 `yaml:"ramp_uv_per_us"`
}

// Default returns the settings used when the file leaves them out.
func Default() Config {
	return Config{
		Mode:       dvfs.ModeSoftware.String(),
		FallDelay:  dvfs.DefaultFallDelay,
		MaxDomains: dvfs.DefaultCapacity,
		Hardware: Hardware{
			IndexOffset:       1,
			CompletionTimeout: 10 * time.Millisecond,
		},
	}
}

// Parse decodes a YAML description on top of the defaults. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	c := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	return &c, nil
}

// Load reads a file, applies the environment, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	if err := c.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadDotEnv loads .env files into the environment, ".env" when none is
// given. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	return nil
}

// ApplyEnv overrides settings with the variables getenv returns.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvMode); v != "" {
		c.Mode = v
	}

	if v := getenv(EnvFallDelay); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvFallDelay, err)
		}

		c.FallDelay = d
	}

	if v := getenv(EnvMonitorPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvMonitorPort, err)
		}

		c.Monitor.Enabled = true
		c.Monitor.Port = port
	}

	if v := getenv(EnvRecord); v != "" {
		c.Record = v
	}

	return nil
}

// ParsedMode returns the backend mode.
func (c *Config) ParsedMode() dvfs.Mode {
	m, _ := dvfs.ParseMode(c.Mode)
	return m
}

// Relations converts the relation lists of a domain.
func (d Domain) Relations() dvfs.Relations {
	return dvfs.Relations{
		VoltShareMasters: bitsetOf(d.VoltShareMasters),
		VoltShareHosts:   bitsetOf(d.VoltShareHosts),
		VoltShareSlaves:  bitsetOf(d.VoltShareSlaves),
		FreqSyncHosts:    bitsetOf(d.FreqSyncHosts),
		FreqSyncSlaves:   bitsetOf(d.FreqSyncSlaves),
		SubDomains:       bitsetOf(d.SubDomains),
	}
}

func bitsetOf(ids []int) dvfs.Bitset {
	out := make([]dvfs.DomainID, len(ids))
	for i, id := range ids {
		out[i] = dvfs.DomainID(id)
	}

	return dvfs.BitsetOf(out...)
}

// Descriptor converts the tables of a domain.
func (d Domain) Descriptor() opp.Descriptor {
	desc := opp.Descriptor{
		MultiVersion: d.MultiVersion,
		Thresholds:   d.TempThresholds,
		Tables:       make(map[string][]opp.Row, len(d.Tables)),
	}

	for key, rows := range d.Tables {
		out := make([]opp.Row, 0, len(rows))
		for _, r := range rows {
			if len(r) == 2 {
				out = append(out, opp.Row{r[0], r[1]})
			}
		}

		desc.Tables[key] = out
	}

	return desc
}

// Binning returns the bins of a domain.
func (d Domain) Binning() opp.Binning {
	return opp.StaticBinning{Main: d.Bin, LowVolt: d.LowVoltBin}
}
