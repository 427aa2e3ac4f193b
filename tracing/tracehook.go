package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/swdvfs/hooking"
)

// CollectTrace attaches a tracer to a hookable. Attaching the same tracer
// twice panics.
func CollectTrace(h hooking.Hookable, tracer hooking.Hook) {
	for _, hook := range h.Hooks() {
		if hook == tracer {
			panic(fmt.Sprintf("already collecting with tracer %s",
				reflect.TypeOf(tracer)))
		}
	}

	h.AcceptHook(tracer)
}
