package simtest

import (
	"fmt"

	"github.com/nexosim/nexosim-go/pkg/serialization"
	"github.com/nexosim/nexosim-go/pkg/simtime"
)

// DemoConfig configures the Demo bench. A null configuration starts at the
// epoch.
type DemoConfig struct {
	StartSecs int64 `cbor:"start_secs"`
}

// Demo is a small bench used across tests:
//
//	source "input"   forwards each event to sink "output"
//	source "counter" increments a counter and emits it to sink "count"
//	source "fail"    always fails with a model error
//	query  "double"  replies with twice its integer request
//	query  "count"   replies with the current counter value
//	sink   "output"  open
//	sink   "count"   closed until opened
func Demo(cfg []byte, b *Bench) error {
	var dc DemoConfig
	var raw any
	if err := serialization.Unmarshal(cfg, &raw); err != nil {
		return err
	}
	if raw != nil {
		if err := serialization.Unmarshal(cfg, &dc); err != nil {
			return err
		}
	}
	b.SetTime(simtime.NewMonotonicTime(dc.StartSecs, 0))

	var count uint64

	b.AddSink("output", true)
	b.AddSink("count", false)

	b.AddSource("input", func(b *Bench, event []byte) error {
		var v any
		if err := serialization.Unmarshal(event, &v); err != nil {
			return err
		}
		return b.Emit("output", v)
	})
	b.AddSource("counter", func(b *Bench, _ []byte) error {
		count++
		return b.Emit("count", count)
	})
	b.AddSource("fail", func(*Bench, []byte) error {
		return fmt.Errorf("the model refused the event")
	})

	b.AddQuery("double", func(_ *Bench, request []byte) ([]any, error) {
		var n int64
		if err := serialization.Unmarshal(request, &n); err != nil {
			return nil, err
		}
		return []any{2 * n}, nil
	})
	b.AddQuery("count", func(*Bench, []byte) ([]any, error) {
		return []any{count}, nil
	})

	return nil
}
