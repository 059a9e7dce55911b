package coordinator

import (
	"container/heap"
	"fmt"
	"log"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roastsig/roast/curve"
	"github.com/roastsig/roast/roast"
	"github.com/roastsig/roast/transport"
)

// Logger is the minimal sink the runtime writes diagnostics to. The
// teacher's prototype calls fmt.Printf directly for things like "bad
// share; recording misbehaving member"; this interface lets tests inject
// a no-op sink instead of touching stdout.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type stdLogger struct{}

func (stdLogger) Printf(format string, args ...interface{})  { log.Printf(format, args...) }
func (stdLogger) Debugf(format string, args ...interface{})  { log.Printf(format, args...) }

// NoopLogger discards everything written to it.
type NoopLogger struct{}

func (NoopLogger) Printf(string, ...interface{}) {}
func (NoopLogger) Debugf(string, ...interface{}) {}

// Link is a single coordinator<->participant connection, abstracted away
// from net.Conn so tests can run the runtime over in-memory pipes.
type Link interface {
	I() uint64
	Send(f transport.Frame) error
	Recv() (transport.Frame, error)
	Close() error
}

// incomingEvent is the sole payload pushed onto the priority queue by
// inbound workers; its queue priority is always Incoming (3).
type incomingEvent struct {
	i            uint64
	s            *big.Int
	pre          roast.PreCommitment
	shareIsValid bool
}

type queueItem struct {
	priority ActionType
	seq      uint64
	event    incomingEvent
}

// actionHeap implements container/heap.Interface, ordering by priority
// (ascending: lower numeric value first) and breaking ties by insertion
// order (seq), giving the stable FIFO-within-priority behavior spec.md
// §4.5 requires.
type actionHeap []*queueItem

func (h actionHeap) Len() int { return len(h) }
func (h actionHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h actionHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *actionHeap) Push(x interface{}) {
	*h = append(*h, x.(*queueItem))
}
func (h *actionHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// priorityQueue is the shared MPSC action queue: any number of inbound
// workers push to it, only the event loop pops.
type priorityQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	h      actionHeap
	seqCtr uint64
	closed bool
}

func newPriorityQueue() *priorityQueue {
	q := &priorityQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *priorityQueue) push(priority ActionType, ev incomingEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.seqCtr++
	heap.Push(&q.h, &queueItem{priority: priority, seq: q.seqCtr, event: ev})
	q.cond.Signal()
}

// pop blocks until an item is available or the queue is closed, in which
// case ok is false.
func (q *priorityQueue) pop() (incomingEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.h) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.h) == 0 {
		return incomingEvent{}, false
	}
	item := heap.Pop(&q.h).(*queueItem)
	return item.event, true
}

func (q *priorityQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// ctxCacheEntry is one entry in a participant's per-connection FIFO of
// scheduled contexts, tagged with the run in which it was scheduled.
type ctxCacheEntry struct {
	runID uint64
	ctx   roast.SessionContext
}

// ctxCache is the SPSC FIFO described in spec.md §4.5/§5: SessionStart is
// the sole producer for a given participant, that participant's inbound
// worker is the sole consumer. Guarded by a mutex here because a single
// runtime may interleave pushes from the event loop with pops from
// multiple reader goroutines, even though per-key access is single
// writer/single reader.
type ctxCache struct {
	mu  sync.Mutex
	fifo map[uint64][]ctxCacheEntry
}

func newCtxCache() *ctxCache {
	return &ctxCache{fifo: make(map[uint64][]ctxCacheEntry)}
}

func (c *ctxCache) push(i uint64, runID uint64, ctx roast.SessionContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fifo[i] = append(c.fifo[i], ctxCacheEntry{runID: runID, ctx: ctx})
}

// pop drains the oldest entry for i. ok is false if nothing is queued.
func (c *ctxCache) pop(i uint64) (ctxCacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.fifo[i]
	if len(q) == 0 {
		return ctxCacheEntry{}, false
	}
	entry := q[0]
	c.fifo[i] = q[1:]
	return entry, true
}

// Result is what a completed run reports: timing and traffic counters
// plus the session that produced the final signature, a strict superset
// of spec.md §7's (elapsed, send_count, recv_count, sessions_started).
// SuccessSessionID is at most SessionsStarted; the two differ when
// sessions opened after the succeeding one were still pending.
type Result struct {
	Elapsed         time.Duration
	SendCount       int
	RecvCount       int
	SessionsStarted uint64
	SuccessSessionID uint64
	Signature       roast.Signature
}

// Runtime wraps a pure Model with its I/O machinery: a priority action
// queue, one inbound worker per link, and a per-participant context cache.
// There is no separate outbound worker or outgoing queue; the event loop
// writes init and sign-request frames to the links itself. Model state is
// mutated exclusively by the goroutine calling Run.
type Runtime struct {
	model    *Model
	links    map[uint64]Link
	queue    *priorityQueue
	cache    *ctxCache
	attacker *AttackerStrategy
	logger   Logger
	runID    uint64

	sendCount atomic.Int64
	recvCount atomic.Int64
}

// NewRuntime builds a Runtime around model, talking to links keyed by
// participant index. If logger is nil, a standard-log-backed default is
// used.
func NewRuntime(model *Model, links map[uint64]Link, attacker *AttackerStrategy, logger Logger) *Runtime {
	if logger == nil {
		logger = stdLogger{}
	}
	return &Runtime{
		model:    model,
		links:    links,
		queue:    newPriorityQueue(),
		cache:    newCtxCache(),
		attacker: attacker,
		logger:   logger,
	}
}

// Run starts one inbound worker per link, distributes the init message to
// every participant, then drives the event loop until a signature is
// produced or a fatal error occurs. runID isolates this run's frames from
// any earlier run sharing the same long-lived connections. Run returns
// without waiting for the inbound workers, which keep reading their links
// until those fail or are closed.
func (rt *Runtime) Run(runID uint64, x curve.Point, iToSk map[uint64]*big.Int, iToX map[uint64]curve.Point) (*Result, error) {
	rt.runID = runID
	start := time.Now()

	var wg sync.WaitGroup
	for i, link := range rt.links {
		initBody := transport.InitBody{
			X:  curve.SerializePoint(x),
			I:  i,
			Sk: transport.FromScalar(iToSk[i]),
		}
		if err := link.Send(transport.Frame{RunID: runID, Kind: transport.KindInit, Init: &initBody}); err != nil {
			return nil, fmt.Errorf("coordinator: sending init to %d: %w", i, err)
		}
		rt.sendCount.Add(1)

		wg.Add(1)
		go rt.inboundWorker(&wg, link)
	}

	var sessionsStarted uint64

	for {
		ev, ok := rt.queue.pop()
		if !ok {
			wg.Wait()
			return nil, fmt.Errorf("coordinator: queue closed before a signature was produced")
		}

		action, err := rt.model.HandleIncoming(ev.i, ev.s, ev.pre, ev.shareIsValid)
		if err != nil {
			rt.queue.close()
			return nil, err
		}

		switch action.Type {
		case NoOp:
			// nothing to do
		case SessionStart:
			sessionsStarted++
			for _, sc := range action.Start {
				rt.cache.push(sc.I, runID, sc.Ctx)

				malicious := map[uint64]struct{}{}
				if rt.attacker != nil {
					malicious = rt.attacker.Choose(sc.Ctx.T, int(sessionsStarted))
				}
				_, isMalicious := malicious[sc.I]

				link := rt.links[sc.I]
				body := transport.SignRequestBody{
					Msg:         sc.Ctx.Msg,
					T:           sc.Ctx.T,
					PreD:        curve.SerializePoint(sc.Ctx.Pre.D),
					PreE:        curve.SerializePoint(sc.Ctx.Pre.E),
					IsMalicious: isMalicious,
				}
				if err := link.Send(transport.Frame{RunID: runID, Kind: transport.KindSignRequest, SignRequest: &body}); err != nil {
					rt.logger.Printf("coordinator: sending sign request to %d: %v", sc.I, err)
					continue
				}
				rt.sendCount.Add(1)
			}
		case SessionSuccess:
			if !roast.VerifyContext(action.Success.Ctx, action.Success.Sig) {
				rt.queue.close()
				return nil, newError(InvariantBreach, "aggregate signature for session %d failed to verify", action.Success.Sid)
			}
			rt.queue.close()
			return &Result{
				Elapsed:          time.Since(start),
				SendCount:        int(rt.sendCount.Load()),
				RecvCount:        int(rt.recvCount.Load()),
				SessionsStarted:  sessionsStarted,
				SuccessSessionID: action.Success.Sid,
				Signature:        action.Success.Sig,
			}, nil
		}
	}
}

// inboundWorker reads frames from link until a read fails, validating
// shares off the event loop before enqueueing. Once the queue is closed
// its pushes are discarded; shutting the queue down does not stop it.
func (rt *Runtime) inboundWorker(wg *sync.WaitGroup, link Link) {
	defer wg.Done()

	for {
		f, err := link.Recv()
		if err != nil {
			rt.logger.Debugf("coordinator: link %d closed: %v", link.I(), err)
			return
		}
		if f.RunID != rt.runID {
			continue
		}
		if f.Kind != transport.KindNonceSubmission || f.NonceSubmission == nil {
			continue
		}
		rt.recvCount.Add(1)

		body := f.NonceSubmission
		preD, errD := curve.DeserializePoint(body.PreD)
		preE, errE := curve.DeserializePoint(body.PreE)
		if errD != nil || errE != nil {
			rt.logger.Printf("coordinator: participant %d sent an invalid nonce point", body.I)
			continue
		}
		pre := roast.PreCommitment{D: preD, E: preE}

		s := body.S.ToScalar()

		var shareIsValid bool
		if s != nil {
			entry, ok := rt.cache.pop(body.I)
			if ok && entry.runID == rt.runID {
				shareIsValid = roast.ShareVal(entry.ctx, body.I, s)
			}
		}

		rt.queue.push(Incoming, incomingEvent{i: body.I, s: s, pre: pre, shareIsValid: shareIsValid})
	}
}
