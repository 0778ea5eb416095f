package client

import (
	"context"

	"github.com/nexosim/nexosim-go/pkg/serialization"
	"github.com/nexosim/nexosim-go/pkg/simtime"
)

// ProcessQuery broadcasts a query and decodes each reply into T. With
// T = any replies keep their generic CBOR shape: maps are map[any]any,
// arrays []any, and externally tagged enum variants single-entry maps.
func ProcessQuery[T any](ctx context.Context, s *Simulation, source string, request any) ([]T, error) {
	raw, err := s.ProcessQueryRaw(ctx, source, request)
	if err != nil {
		return nil, err
	}
	return serialization.DecodeAll[T](raw)
}

// ReadEvents drains a sink and decodes each event into T.
func ReadEvents[T any](ctx context.Context, s *Simulation, sink string) ([]T, error) {
	raw, err := s.ReadEventsRaw(ctx, sink)
	if err != nil {
		return nil, err
	}
	return serialization.DecodeAll[T](raw)
}

// AwaitEvent waits for the next event of a sink and decodes it into T.
func AwaitEvent[T any](ctx context.Context, s *Simulation, sink string, timeout simtime.Duration) (T, error) {
	raw, err := s.AwaitEventRaw(ctx, sink, timeout)
	if err != nil {
		var zero T
		return zero, err
	}
	return serialization.Decode[T](raw)
}
