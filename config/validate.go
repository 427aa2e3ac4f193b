package config

import (
	"fmt"
	"sort"

	"github.com/sarchlab/swdvfs/dvfs"
	"github.com/sarchlab/swdvfs/opp"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// Validate checks that the description can be built.
func (c *Config) Validate() error {
	if _, err := dvfs.ParseMode(c.Mode); err != nil {
		return invalid("%v", err)
	}

	if c.MaxDomains < 1 || c.MaxDomains > dvfs.MaxDomainIDs {
		return invalid("max_domains %d not in [1, %d]",
			c.MaxDomains, dvfs.MaxDomainIDs)
	}

	if c.FallDelay < 0 {
		return invalid("negative fall_delay %v", c.FallDelay)
	}

	if c.BoostDuration < 0 {
		return invalid("negative boost_duration %v", c.BoostDuration)
	}

	if c.Hardware.IndexOffset < 0 {
		return invalid("negative hardware index_offset")
	}

	if len(c.Domains) == 0 {
		return invalid("no domain")
	}

	declared := make(map[int]bool)
	names := make(map[string]bool)

	for _, d := range c.Domains {
		if d.ID < 0 || d.ID >= c.MaxDomains {
			return invalid("domain %d: id not in [0, %d)", d.ID, c.MaxDomains)
		}

		if declared[d.ID] {
			return invalid("domain %d declared twice", d.ID)
		}

		if d.Name == "" || names[d.Name] {
			return invalid("domain %d: name %q missing or reused", d.ID, d.Name)
		}

		declared[d.ID] = true
		names[d.Name] = true
	}

	regulators := make(map[string]Regulator)

	for _, d := range c.Domains {
		if err := d.validate(declared); err != nil {
			return err
		}

		if r, ok := regulators[d.Regulator.Name]; ok && r != d.Regulator {
			return invalid("domain %d: regulator %s described differently",
				d.ID, d.Regulator.Name)
		}

		regulators[d.Regulator.Name] = d.Regulator
	}

	return nil
}

func (d Domain) validate(declared map[int]bool) error {
	lists := map[string][]int{
		"volt_share_masters": d.VoltShareMasters,
		"volt_share_hosts":   d.VoltShareHosts,
		"volt_share_slaves":  d.VoltShareSlaves,
		"freq_sync_hosts":    d.FreqSyncHosts,
		"freq_sync_slaves":   d.FreqSyncSlaves,
		"sub_domains":        d.SubDomains,
	}

	for name, ids := range lists {
		for _, id := range ids {
			if !declared[id] {
				return invalid("domain %d: %s references undeclared domain %d",
					d.ID, name, id)
			}
		}
	}

	if !sort.IntsAreSorted(d.TempThresholds) {
		return invalid("domain %d: temp_thresholds not ascending", d.ID)
	}

	if d.Regulator.Name == "" {
		return invalid("domain %d: regulator without name", d.ID)
	}

	if d.Regulator.MinUV > d.Regulator.MaxUV {
		return invalid("domain %d: regulator %s min above max",
			d.ID, d.Regulator.Name)
	}

	if d.Clock.InitialHz == 0 {
		return invalid("domain %d: clock initial_hz missing", d.ID)
	}

	if len(d.Tables) == 0 {
		return invalid("domain %d: no table", d.ID)
	}

	for key, rows := range d.Tables {
		if len(rows) == 0 {
			return invalid("domain %d: table %s is empty", d.ID, key)
		}

		t := make(opp.Table, 0, len(rows))

		for i, r := range rows {
			if len(r) != 2 {
				return invalid("domain %d: table %s row %d has %d cells",
					d.ID, key, i, len(r))
			}

			t = append(t, opp.Point{
				FreqHz: uint64(r[0]) * 1000,
				VoltUV: uint64(r[1]),
			})
		}

		if err := t.Validate(); err != nil {
			return invalid("domain %d: table %s: %v", d.ID, key, err)
		}
	}

	return nil
}
