package dvfs

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/swdvfs/hw"
	"github.com/sarchlab/swdvfs/opp"
)

var _ = Describe("Voltage-share slaves", func() {
	var b *board

	addSlave := func(rows []opp.Row) {
		b.add(DomainSpec{
			ID:        2,
			Name:      "dsu",
			Relations: Relations{VoltShareHosts: BitsetOf(0)},
			Tables: opp.Descriptor{
				Tables: map[string][]opp.Row{opp.BaseKey: rows},
			},
		}, 800*mhz)
	}

	BeforeEach(func() {
		b = newBoard()
		b.add(DomainSpec{
			ID:        0,
			Name:      "cluster0",
			Regulator: b.regulator("vddarm", 900000),
			Relations: Relations{
				VoltShareMasters: BitsetOf(0),
				VoltShareSlaves:  BitsetOf(2),
			},
		}, 1000*mhz)
	})

	It("should follow a rising rail after the host", func() {
		addSlave([]opp.Row{
			{1200000, 1000000},
			{800000, 900000},
			{400000, 800000},
		})
		b.journal.Reset()

		Expect(b.c.SetTarget(0, 2, true)).To(Succeed())

		ops := b.journal.Ops()
		Expect(ops).To(HaveLen(3))
		Expect(ops[0].Kind).To(Equal(hw.OpVoltage))
		Expect(ops[1].Target).To(Equal("cluster0"))
		Expect(ops[2].Target).To(Equal("dsu"))
		Expect(ops[2].Value).To(Equal(1200 * mhz))

		info := b.info(2)
		Expect(info.FreqReqHz).To(Equal(1200 * mhz))
		Expect(info.VoltReqUV).To(Equal(uint64(1000000)))
	})

	It("should slow down before a falling rail", func() {
		addSlave([]opp.Row{
			{1200000, 1000000},
			{800000, 900000},
			{400000, 800000},
		})
		Expect(b.c.SetTarget(0, 2, true)).To(Succeed())
		b.journal.Reset()

		Expect(b.c.SetTarget(0, 0, true)).To(Succeed())

		ops := b.journal.Ops()
		Expect(ops).To(HaveLen(3))
		Expect(ops[0].Target).To(Equal("dsu"))
		Expect(ops[0].Value).To(Equal(800 * mhz))
		Expect(ops[1].Target).To(Equal("cluster0"))
		Expect(ops[2].Kind).To(Equal(hw.OpVoltage))
	})

	It("should abort the host when a slave cannot follow down", func() {
		addSlave([]opp.Row{
			{1200000, 1000000},
			{800000, 950000},
		})
		Expect(b.c.SetTarget(0, 1, true)).To(Succeed())

		err := b.c.SetTarget(0, 0, true)

		var propErr *PropagationError
		Expect(errors.As(err, &propErr)).To(BeTrue())
		Expect(propErr.AtDomain).To(Equal(DomainID(2)))
		Expect(err).To(MatchError(ErrPropagationFailed))
		Expect(err).To(MatchError(ErrNoMatchingPoint))

		Expect(b.railUV("vddarm")).To(Equal(uint64(1000000)))
		Expect(b.clocks[0].Rate()).To(Equal(1400 * mhz))
		Expect(b.info(0).FreqReqHz).To(Equal(1400 * mhz))
	})

	It("should skip offline slaves", func() {
		addSlave([]opp.Row{{1200000, 1000000}})

		d, _ := b.c.Registry().Lookup(2)
		d.rail.Lock()
		d.online = false
		d.rail.Unlock()

		Expect(b.c.SetTarget(0, 0, true)).To(Succeed())
		Expect(b.clocks[2].Rate()).To(Equal(800 * mhz))
	})
})

var _ = Describe("Frequency-sync slaves", func() {
	var b *board

	BeforeEach(func() {
		b = newBoard()
		b.add(DomainSpec{
			ID:        0,
			Name:      "cluster0",
			Regulator: b.regulator("vddarm", 900000),
			Relations: Relations{
				VoltShareMasters: BitsetOf(0),
				FreqSyncSlaves:   BitsetOf(3),
			},
		}, 1000*mhz)
		b.add(DomainSpec{
			ID:        3,
			Name:      "gpu",
			Regulator: b.regulator("vddgpu", 900000),
			Relations: Relations{FreqSyncHosts: BitsetOf(0)},
			Tables: opp.Descriptor{
				Tables: map[string][]opp.Row{opp.BaseKey: {
					{900000, 1000000},
					{600000, 900000},
				}},
			},
		}, 600*mhz)
	})

	It("should replay index requests on the slaves", func() {
		backend := NewSoftwareBackend(b.c)

		Expect(backend.ApplyIndex(0, 1)).To(Succeed())

		Expect(b.clocks[0].Rate()).To(Equal(1400 * mhz))
		Expect(b.clocks[3].Rate()).To(Equal(900 * mhz))
		Expect(b.railUV("vddgpu")).To(Equal(uint64(1000000)))

		idx, err := backend.CurrentIndex(3)
		Expect(err).NotTo(HaveOccurred())
		Expect(idx).To(Equal(1))
	})

	It("should report the slave that failed", func() {
		err := b.c.NotifyFreqSyncSlaves(0, 2, true)

		var propErr *PropagationError
		Expect(errors.As(err, &propErr)).To(BeTrue())
		Expect(propErr.AtDomain).To(Equal(DomainID(3)))
		Expect(err).To(MatchError(ErrInvalidIndex))
	})
})
