package hw

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SimRegulator", func() {
	var (
		journal *Journal
		r       *SimRegulator
	)

	BeforeEach(func() {
		journal = NewJournal()
		r = MakeRegulatorBuilder().
			WithName("vddarm").
			WithRange(600000, 1200000).
			WithStep(12500).
			WithRamp(10000).
			WithVoltage(900000).
			WithJournal(journal).
			Build()
	})

	It("should report the initial voltage", func() {
		v, err := r.Voltage()

		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint64(900000)))
	})

	It("should settle on an exact step", func() {
		Expect(r.SetVoltageTol(1000000, 0)).To(Succeed())

		v, _ := r.Voltage()
		Expect(v).To(Equal(uint64(1000000)))
		Expect(journal.Ops()).To(HaveLen(1))
		Expect(journal.Ops()[0].OK).To(BeTrue())
	})

	It("should round up within the tolerance", func() {
		Expect(r.SetVoltageTol(1001000, 5)).To(Succeed())

		v, _ := r.Voltage()
		Expect(v).To(Equal(uint64(1012500)))
	})

	It("should reject a voltage without a step in the window", func() {
		err := r.SetVoltageTol(1001000, 0)

		Expect(errors.Is(err, ErrUnsupportedVoltage)).To(BeTrue())
		v, _ := r.Voltage()
		Expect(v).To(Equal(uint64(900000)))
		Expect(journal.Ops()[0].OK).To(BeFalse())
	})

	It("should reject a voltage above the range", func() {
		Expect(r.SetVoltageTol(1300000, 0)).NotTo(Succeed())
		Expect(r.IsSupportedVoltage(1300000, 1400000)).To(BeFalse())
		Expect(r.IsSupportedVoltage(1100000, 1100000)).To(BeTrue())
	})

	It("should inject faults", func() {
		r.FailNext(1, nil)

		Expect(r.SetVoltageTol(1000000, 0)).To(MatchError(ErrInjected))
		Expect(r.SetVoltageTol(1000000, 0)).To(Succeed())
	})

	It("should estimate settle time from the ramp", func() {
		Expect(r.SettleTime(900000, 1000000)).To(Equal(10 * time.Microsecond))
		Expect(r.SettleTime(1000000, 900000)).To(Equal(10 * time.Microsecond))
	})
})
