package opp

import (
	"errors"
	"io"
	"log/slog"

	"github.com/google/go-cmp/cmp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func u32(v uint32) *uint32 {
	return &v
}

var _ = Describe("Builder", func() {
	var (
		b    Builder
		desc Descriptor
	)

	BeforeEach(func() {
		b = MakeBuilder().
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

		desc = Descriptor{
			Thresholds: []int{65, 85},
			Tables: map[string][]Row{
				"operating-points": {{1200000, 1000000}},
				"operating-points-1": {
					{1800000, 1100000},
					{1400000, 1000000},
					{1000000, 900000},
				},
				"operating-points-1-65": {{1400000, 1000000}},
				"operating-points-1-2":  {{1600000, 1050000}},
			},
		}
	})

	It("should use the plain table when the bin is absent", func() {
		build, err := b.Build(desc, StaticBinning{}, 90)

		Expect(err).NotTo(HaveOccurred())
		Expect(build.SelectionKey).To(Equal("operating-points"))
		Expect(build.HasWindow).To(BeFalse())
	})

	It("should use the plain table when the bin is out of range", func() {
		build, err := b.Build(desc, StaticBinning{Main: u32(5)}, 20)

		Expect(err).NotTo(HaveOccurred())
		Expect(build.SelectionKey).To(Equal("operating-points"))
	})

	It("should abort when the bin read is deferred", func() {
		_, err := b.Build(desc, StaticBinning{Deferred: true}, 20)

		Expect(err).To(MatchError(ErrProbeDefer))
		Expect(err).To(MatchError(ErrTableBuildFailed))
	})

	It("should parse rows into Hz, fastest first", func() {
		build, err := b.Build(desc, StaticBinning{Main: u32(1)}, 20)

		Expect(err).NotTo(HaveOccurred())

		want := Table{
			{FreqHz: 1800000000, VoltUV: 1100000},
			{FreqHz: 1400000000, VoltUV: 1000000},
			{FreqHz: 1000000000, VoltUV: 900000},
		}
		Expect(cmp.Diff(want, build.Points)).To(BeEmpty())
		Expect(build.TempMaxFreqKHz).To(Equal(uint32(1800000)))
		Expect(build.Window).To(Equal(Window{
			Bracket:    -1,
			Bottom:     TempMin,
			Top:        65,
			Thresholds: 2,
		}))
	})

	It("should append the temperature suffix", func() {
		build, err := b.Build(desc, StaticBinning{Main: u32(1)}, 70)

		Expect(err).NotTo(HaveOccurred())
		Expect(build.SelectionKey).To(Equal("operating-points-1-65"))
		Expect(build.Window.Bottom).To(Equal(65))
		Expect(build.Window.Top).To(Equal(85))
	})

	It("should append the low-voltage bin", func() {
		desc.Thresholds = nil

		build, err := b.Build(desc,
			StaticBinning{Main: u32(1), LowVolt: u32(2)}, 20)

		Expect(err).NotTo(HaveOccurred())
		Expect(build.SelectionKey).To(Equal("operating-points-1-2"))
	})

	It("should select versioned tables", func() {
		desc.MultiVersion = true
		desc.Tables["operating-points-v1"] = []Row{{900000, 800000}}

		build, err := b.WithSocVersion("1").Build(desc, StaticBinning{}, 20)
		Expect(err).NotTo(HaveOccurred())
		Expect(build.SelectionKey).To(Equal("operating-points-v1"))

		build, err = b.WithSocVersion("2").Build(desc, StaticBinning{}, 20)
		Expect(err).NotTo(HaveOccurred())
		Expect(build.SelectionKey).To(Equal("operating-points"))
	})

	It("should report the missing selection key", func() {
		_, err := b.Build(desc, StaticBinning{Main: u32(1)}, 90)

		var buildErr *TableBuildError
		Expect(errors.As(err, &buildErr)).To(BeTrue())
		Expect(buildErr.SelectionKey).To(Equal("operating-points-1-85"))
		Expect(err).To(MatchError(ErrNotFound))
	})

	It("should reject empty and unordered tables", func() {
		desc.Tables["operating-points"] = nil
		_, err := b.Build(desc, StaticBinning{}, 20)
		Expect(err).To(MatchError(ErrEmptyTable))

		desc.Tables["operating-points"] = []Row{
			{1000000, 900000},
			{1200000, 1000000},
		}
		_, err = b.Build(desc, StaticBinning{}, 20)
		Expect(err).To(MatchError(ErrTableBuildFailed))
	})

	It("should drop rows beyond capacity", func() {
		var rows []Row
		for i := 0; i < MaxPoints+2; i++ {
			rows = append(rows, Row{uint32(2000000 - i*100000), 1000000})
		}
		desc.Tables["operating-points"] = rows

		build, err := b.Build(desc, StaticBinning{}, 20)

		Expect(err).NotTo(HaveOccurred())
		Expect(build.Points).To(HaveLen(MaxPoints))
		Expect(build.Dropped).To(Equal(2))
		Expect(build.TempMaxFreqKHz).To(Equal(uint32(2000000)))
	})
})

var _ = Describe("BracketOf", func() {
	It("should bound the bracket by its neighbours", func() {
		cases := []struct {
			temp   int
			suffix string
			window Window
		}{
			{20, "", Window{Bracket: -1, Bottom: TempMin, Top: 65, Thresholds: 2}},
			{65, "-65", Window{Bracket: 0, Bottom: 65, Top: 85, Thresholds: 2}},
			{84, "-65", Window{Bracket: 0, Bottom: 65, Top: 85, Thresholds: 2}},
			{85, "-85", Window{Bracket: 1, Bottom: 85, Top: TempMax, Thresholds: 2}},
		}

		for _, c := range cases {
			suffix, w := BracketOf([]int{65, 85}, c.temp)

			Expect(suffix).To(Equal(c.suffix), "temp %d", c.temp)
			Expect(cmp.Diff(c.window, w)).To(BeEmpty(), "temp %d", c.temp)
		}
	})

	It("should honor only the first thresholds", func() {
		suffix, w := BracketOf([]int{10, 20, 30, 40, 50}, 55)

		Expect(suffix).To(Equal("-40"))
		Expect(w.Thresholds).To(Equal(MaxThresholds))
		Expect(w.Top).To(Equal(TempMax))
	})
})

var _ = Describe("Table", func() {
	t := Table{
		{FreqHz: 1800000000, VoltUV: 1100000},
		{FreqHz: 1400000000, VoltUV: 1000000},
		{FreqHz: 1000000000, VoltUV: 900000},
	}

	It("should convert ascending indexes to rows", func() {
		Expect(t.RowOf(0)).To(Equal(2))
		Expect(t.RowOf(2)).To(Equal(0))
		Expect(t.RowOf(7)).To(Equal(0))
		Expect(t.IndexOf(0)).To(Equal(2))
	})

	It("should find the fastest point a voltage sustains", func() {
		row, ok := t.FirstAtOrBelow(1050000)
		Expect(ok).To(BeTrue())
		Expect(row).To(Equal(1))

		_, ok = t.FirstAtOrBelow(800000)
		Expect(ok).To(BeFalse())
	})

	It("should find rows by frequency", func() {
		row, ok := t.RowOfFreq(1000000000)
		Expect(ok).To(BeTrue())
		Expect(row).To(Equal(2))
		Expect(t.MaxFreqKHz()).To(Equal(uint32(1800000)))
	})
})
