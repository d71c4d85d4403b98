package circuit

import (
	"context"
	"errors"
	"sync"
	"time"

	"club-overview-console/pkg/logging"
	"club-overview-console/pkg/metrics"
)

// State represents the circuit breaker state
// Closed: normal operation; HalfOpen: probing; Open: fail fast
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Config tunes a circuit breaker instance.
type Config struct {
	Name string

	OperationTimeout  time.Duration // per-call timeout
	OpenFor           time.Duration // how long to stay open before probing
	MaxConsecFailures int           // consecutive failures to open
	WindowSize        int           // sliding window of recent calls
	FailureRate       float64       // 0..1 fraction in window to open
	MinSamples        int           // window samples required before FailureRate applies
	SlowCallThreshold time.Duration // duration over which a call is considered slow
	SlowCallRate      float64       // 0..1 fraction in window to open
}

// ErrOpen indicates the breaker is open and calls are short-circuited.
var ErrOpen = errors.New("circuit open")

type sample struct {
	success bool
	slow    bool
}

// Breaker guards calls to a flaky dependency (blob storage, geocoding).
type Breaker struct {
	cfg        Config
	mu         sync.Mutex
	st         State
	nextTrial  time.Time
	consecFail int
	probing    bool

	win  []sample
	idx  int
	used int

	log *logging.ComponentLogger
}

func New(cfg Config, log *logging.Logger) *Breaker {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 20
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = cfg.WindowSize / 2
	}
	if log == nil {
		log = logging.NewNop()
	}
	b := &Breaker{
		cfg: cfg,
		st:  Closed,
		win: make([]sample, cfg.WindowSize),
		log: log.WithComponent("circuit"),
	}
	metrics.BreakerState.WithLabelValues(cfg.Name).Set(0)
	return b
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

func (b *Breaker) setStateLocked(st State) {
	if b.st == st {
		return
	}
	b.st = st
	if st == Open {
		b.nextTrial = time.Now().Add(b.cfg.OpenFor)
	}
	if st == Closed {
		b.used, b.idx = 0, 0
	}
	metrics.BreakerState.WithLabelValues(b.cfg.Name).Set(float64(st))
	b.log.Info("breaker state change", logging.String("name", b.cfg.Name), logging.String("state", st.String()))
}

// record adds a sample to the ring and opens the breaker when a threshold trips.
func (b *Breaker) record(success, slow bool) {
	b.win[b.idx] = sample{success: success, slow: slow}
	if b.used < len(b.win) {
		b.used++
	}
	b.idx = (b.idx + 1) % len(b.win)

	if b.st != Closed {
		return
	}
	if b.cfg.MaxConsecFailures > 0 && b.consecFail >= b.cfg.MaxConsecFailures {
		b.setStateLocked(Open)
		return
	}
	if b.used < b.cfg.MinSamples {
		return
	}
	fail, slowN := 0, 0
	for i := 0; i < b.used; i++ {
		if !b.win[i].success {
			fail++
		}
		if b.win[i].slow {
			slowN++
		}
	}
	if b.cfg.FailureRate > 0 && float64(fail)/float64(b.used) >= b.cfg.FailureRate {
		b.setStateLocked(Open)
		return
	}
	if b.cfg.SlowCallRate > 0 && float64(slowN)/float64(b.used) >= b.cfg.SlowCallRate {
		b.setStateLocked(Open)
	}
}

// Do runs op under the breaker. While open it returns ErrOpen (or the fallback's result)
// without calling op. Only one trial call runs in half-open state.
func (b *Breaker) Do(ctx context.Context, op func(ctx context.Context) error, fallback func(ctx context.Context, cause error) error) error {
	b.mu.Lock()
	switch b.st {
	case Open:
		if time.Now().Before(b.nextTrial) {
			b.mu.Unlock()
			return b.reject(ctx, fallback)
		}
		b.setStateLocked(HalfOpen)
		b.probing = true
	case HalfOpen:
		if b.probing {
			b.mu.Unlock()
			return b.reject(ctx, fallback)
		}
		b.probing = true
	}
	b.mu.Unlock()

	if b.cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.OperationTimeout)
		defer cancel()
	}

	start := time.Now()
	err := op(ctx)
	dur := time.Since(start)
	metrics.BreakerLatency.WithLabelValues(b.cfg.Name).Observe(dur.Seconds())
	slow := b.cfg.SlowCallThreshold > 0 && dur > b.cfg.SlowCallThreshold

	b.mu.Lock()
	defer b.mu.Unlock()
	wasTrial := b.st == HalfOpen
	if wasTrial {
		b.probing = false
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.BreakerCalls.WithLabelValues(b.cfg.Name, "timeout").Inc()
		} else {
			metrics.BreakerCalls.WithLabelValues(b.cfg.Name, "failure").Inc()
		}
		b.consecFail++
		b.record(false, slow)
		if wasTrial {
			b.setStateLocked(Open)
		}
		if fallback != nil {
			return fallback(ctx, err)
		}
		return err
	}

	metrics.BreakerCalls.WithLabelValues(b.cfg.Name, "success").Inc()
	b.consecFail = 0
	b.record(true, slow)
	if wasTrial {
		b.setStateLocked(Closed)
	}
	return nil
}

func (b *Breaker) reject(ctx context.Context, fallback func(ctx context.Context, cause error) error) error {
	metrics.BreakerCalls.WithLabelValues(b.cfg.Name, "rejected").Inc()
	if fallback != nil {
		return fallback(ctx, ErrOpen)
	}
	return ErrOpen
}
