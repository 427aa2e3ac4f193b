package hooking

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeTimeTeller struct {
	now time.Time
}

func (f *fakeTimeTeller) Now() time.Time {
	return f.now
}

var _ = Describe("LatencyTracer", func() {
	var (
		timeTeller *fakeTimeTeller
		t          *LatencyTracer
	)

	BeforeEach(func() {
		timeTeller = &fakeTimeTeller{now: time.Unix(100, 0)}
		t = NewLatencyTracer(timeTeller, nil)
	})

	It("should average successful tasks per kind", func() {
		t.StartTask(TaskStart{ID: "1", Kind: "transition"})
		timeTeller.now = timeTeller.now.Add(10 * time.Microsecond)
		t.EndTask(TaskEnd{ID: "1"})

		t.StartTask(TaskStart{ID: "2", Kind: "transition"})
		timeTeller.now = timeTeller.now.Add(30 * time.Microsecond)
		t.EndTask(TaskEnd{ID: "2"})

		Expect(t.TotalCount("transition")).To(Equal(uint64(2)))
		Expect(t.AverageTime("transition")).To(Equal(20 * time.Microsecond))
		Expect(t.AverageTime("rebuild")).To(BeZero())
	})

	It("should count failed tasks apart", func() {
		t.StartTask(TaskStart{ID: "1", Kind: "transition"})
		timeTeller.now = timeTeller.now.Add(time.Millisecond)
		t.EndTask(TaskEnd{ID: "1", Err: errors.New("boom")})

		Expect(t.TotalCount("transition")).To(BeZero())
		Expect(t.FailedCount("transition")).To(Equal(uint64(1)))
		Expect(t.InflightCount()).To(BeZero())
	})

	It("should ignore filtered tasks", func() {
		t = NewLatencyTracer(timeTeller, func(ts TaskStart) bool {
			return ts.Kind == "rebuild"
		})

		t.Func(HookCtx{
			Pos:  HookPosTaskStart,
			Item: TaskStart{ID: "1", Kind: "transition"},
		})
		t.Func(HookCtx{Pos: HookPosTaskEnd, Item: TaskEnd{ID: "1"}})

		Expect(t.TotalCount("transition")).To(BeZero())
	})
})

var _ = Describe("HookableBase", func() {
	It("should panic on duplicated hooks", func() {
		h := &HookableBase{}
		tracer := NewLatencyTracer(WallClock{}, nil)

		h.AcceptHook(tracer)

		Expect(func() { h.AcceptHook(tracer) }).To(Panic())
		Expect(h.NumHooks()).To(Equal(1))
	})

	It("should invoke every hook in order", func() {
		h := &HookableBase{}
		var calls []string

		h.AcceptHook(FuncHook(func(ctx HookCtx) {
			calls = append(calls, "a:"+ctx.Pos.Name)
		}))
		h.AcceptHook(FuncHook(func(ctx HookCtx) {
			calls = append(calls, "b:"+ctx.Pos.Name)
		}))

		h.InvokeHook(HookCtx{Domain: h, Pos: HookPosTaskStep})

		Expect(calls).To(Equal([]string{
			"a:HookPosTaskStep", "b:HookPosTaskStep",
		}))
	})
})
