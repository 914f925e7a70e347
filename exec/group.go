package exec

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/aisreactor/reactor/cmn/cos"
	"github.com/aisreactor/reactor/cmn/nlog"
	"github.com/aisreactor/reactor/promise"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Group holds an ordered set of executors and exposes round-robin
// selection and coordinated graceful shutdown (spec.md §4.6).
type Group struct {
	execs []*Executor
	next  atomic.Uint64

	shuttingDown atomic.Bool
	shutdown     atomic.Bool
	termination  *promise.Promise

	reg *prometheus.Registry
}

// NewGroup constructs n executors named "<name>-0".."<name>-(n-1)" sharing
// reg for metrics registration (reg may be nil).
func NewGroup(name string, n int, reg *prometheus.Registry) *Group {
	g := &Group{termination: promise.New(nil), reg: reg}
	for i := 0; i < n; i++ {
		g.execs = append(g.execs, New(indexedName(name, i), reg))
	}
	return g
}

func indexedName(name string, i int) string {
	const digits = "0123456789"
	if i == 0 {
		return name + "-0"
	}
	buf := make([]byte, 0, 4)
	for i > 0 {
		buf = append([]byte{digits[i%10]}, buf...)
		i /= 10
	}
	return name + "-" + string(buf)
}

// Next selects the next executor using round-robin, per spec.md §4.6.
func (g *Group) Next() *Executor {
	i := g.next.Add(1) - 1
	return g.execs[i%uint64(len(g.execs))]
}

// Registry exposes the Prometheus registry this group's executors report
// to, or nil if none was supplied at construction.
func (g *Group) Registry() *prometheus.Registry { return g.reg }

func (g *Group) IsShuttingDown() bool { return g.shuttingDown.Load() }
func (g *Group) IsShutdown() bool     { return g.shutdown.Load() }

// ShutdownGracefully initiates coordinated shutdown: IsShuttingDown
// becomes true immediately; each executor keeps accepting tasks during
// the quiet period, with every acceptance resetting that executor's
// quiet-period clock, until either quietPeriod elapses with no new
// acceptance or timeout is reached — whichever comes first — at which
// point every executor's worker goroutine is stopped. The returned
// promise (also Group.TerminationFuture) completes once all executors
// have exited.
func (g *Group) ShutdownGracefully(quietPeriod, timeout time.Duration) *promise.Promise {
	if !g.shuttingDown.CompareAndSwap(false, true) {
		return g.termination
	}
	for _, e := range g.execs {
		e.beginDrain()
	}
	go g.drainAndStop(quietPeriod, timeout)
	return g.termination
}

func (g *Group) drainAndStop(quietPeriod, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	const pollInterval = 50 * time.Millisecond
	for {
		quiet := true
		now := time.Now()
		for _, e := range g.execs {
			if now.Sub(e.lastAcceptedAt()) < quietPeriod {
				quiet = false
				break
			}
		}
		if quiet || now.After(deadline) {
			break
		}
		time.Sleep(pollInterval)
	}

	var eg errgroup.Group
	var errs cos.Errs
	for _, e := range g.execs {
		e := e
		eg.Go(func() error {
			e.stop()
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := e.TerminationFuture().Await(ctx); err != nil {
				errs.Add(err)
			}
			return nil
		})
	}
	eg.Wait()
	if errs.Cnt() > 0 {
		nlog.Warningln("group shutdown:", errs.Cnt(), "executor"+cos.Plural(errs.Cnt()), "did not terminate cleanly:", errs.Error())
	}
	g.shutdown.Store(true)
	g.termination.TrySuccess(nil)
}

// TerminationFuture completes once every executor in the group has
// stopped.
func (g *Group) TerminationFuture() *promise.Promise { return g.termination }

// Executors returns the group's executors in selection order, primarily
// for tests and diagnostics.
func (g *Group) Executors() []*Executor {
	out := make([]*Executor, len(g.execs))
	copy(out, g.execs)
	return out
}
