package client

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
	"github.com/nexosim/nexosim-go/pkg/logger"
	"github.com/nexosim/nexosim-go/pkg/simtime"
)

// PollerConfig configures a SinkPoller.
type PollerConfig struct {
	Sinks []string
	// Rate is the number of polling rounds per second. Zero means 10.
	Rate  float64
	Burst int
	// StampTime reads the simulation time once per round and attaches it
	// to every batch of that round.
	StampTime bool
	Logger    *logger.Logger
}

// SinkBatch holds the events drained from one sink in one round. Seq is the
// sequence number of the first event, counted per sink from zero.
type SinkBatch struct {
	Sink   string
	Time   simtime.MonotonicTime
	Events [][]byte
	Seq    uint64
}

// SinkPoller repeatedly drains a set of sinks at a bounded rate.
type SinkPoller struct {
	sim       *Simulation
	sinks     []string
	stampTime bool
	limiter   *rate.Limiter
	log       *logger.Logger
	seq       map[string]uint64
}

// NewSinkPoller validates cfg and returns a poller for sim.
func NewSinkPoller(sim *Simulation, cfg PollerConfig) (*SinkPoller, error) {
	if len(cfg.Sinks) == 0 {
		return nil, fmt.Errorf("%w: at least one sink is required", simerrors.ErrMissingArgument)
	}
	if cfg.Rate < 0 {
		return nil, fmt.Errorf("poll rate must not be negative: %g", cfg.Rate)
	}
	if cfg.Rate == 0 {
		cfg.Rate = 10
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	log := cfg.Logger
	if log == nil {
		log = sim.log
	}

	return &SinkPoller{
		sim:       sim,
		sinks:     append([]string(nil), cfg.Sinks...),
		stampTime: cfg.StampTime,
		limiter:   rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		log:       log.WithComponent("poller"),
		seq:       make(map[string]uint64, len(cfg.Sinks)),
	}, nil
}

// Poll performs one round without waiting for the limiter. Sinks with no
// pending events are omitted from the result.
func (p *SinkPoller) Poll(ctx context.Context) ([]SinkBatch, error) {
	var now simtime.MonotonicTime
	if p.stampTime {
		t, err := p.sim.Time(ctx)
		if err != nil {
			return nil, err
		}
		now = t
	}

	var batches []SinkBatch
	for _, sink := range p.sinks {
		events, err := p.sim.ReadEventsRaw(ctx, sink)
		if err != nil {
			return batches, err
		}
		if len(events) == 0 {
			continue
		}
		batches = append(batches, SinkBatch{Sink: sink, Time: now, Events: events, Seq: p.seq[sink]})
		p.seq[sink] += uint64(len(events))
	}
	return batches, nil
}

// Run polls until ctx ends, passing every non-empty batch to fn. It returns
// nil when ctx is cancelled or its deadline passes, and otherwise the first
// error from a call or from fn.
func (p *SinkPoller) Run(ctx context.Context, fn func(SinkBatch) error) error {
	p.log.Debug("poller started", "sinks", p.sinks, "rate", float64(p.limiter.Limit()))
	defer p.log.Debug("poller stopped")

	for {
		if !p.wait(ctx) {
			return nil
		}

		batches, err := p.Poll(ctx)
		for _, b := range batches {
			if ferr := fn(b); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			if ctx.Err() != nil && simerrors.IsContextError(err) {
				return nil
			}
			simerrors.LogError(p.log, err, "poll failed")
			return err
		}
	}
}

// wait blocks until the limiter grants the next round. It reports false
// once ctx ends; a round that would start past the deadline waits for the
// deadline instead of failing.
func (p *SinkPoller) wait(ctx context.Context) bool {
	r := p.limiter.Reserve()
	if !r.OK() {
		<-ctx.Done()
		return false
	}

	delay := r.Delay()
	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return ctx.Err() == nil
	case <-ctx.Done():
		r.Cancel()
		return false
	}
}
