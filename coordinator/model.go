// Package coordinator implements the ROAST coordinator: a pure state
// machine tracking participant readiness and open signing sessions
// (model.go), the I/O runtime wrapping it with a priority action queue and
// per-connection workers (runtime.go), a benchmark attacker strategy
// (attacker.go), and an insecure centralized dealer for test keygen
// (dealer.go).
package coordinator

import (
	"math/big"

	"github.com/roastsig/roast/curve"
	"github.com/roastsig/roast/roast"
)

// ActionType tags the result of handling one incoming event. Its integer
// value is also its queue priority: lower values are served first.
type ActionType int

const (
	NoOp         ActionType = 1
	SessionSuccess ActionType = 2
	Incoming     ActionType = 3
	SessionStart ActionType = 4
)

func (a ActionType) String() string {
	switch a {
	case NoOp:
		return "NoOp"
	case SessionSuccess:
		return "SessionSuccess"
	case Incoming:
		return "Incoming"
	case SessionStart:
		return "SessionStart"
	default:
		return "Unknown"
	}
}

// ScheduledContext pairs a participant with the SessionContext it must use
// to compute its next partial signature, as produced on SessionStart.
type ScheduledContext struct {
	I   uint64
	Ctx roast.SessionContext
}

// SuccessPayload is returned with SessionSuccess: the session's context and
// the aggregated signature, ready for roast.Verify.
type SuccessPayload struct {
	Sid uint64
	Ctx roast.SessionContext
	Sig roast.Signature
}

// Action is the outcome of one HandleIncoming call, along with its
// scheduling priority.
type Action struct {
	Type     ActionType
	Start    []ScheduledContext // populated for SessionStart
	Success  *SuccessPayload    // populated for SessionSuccess
}

// sessionState tracks one open signing session.
type sessionState struct {
	t       []uint64
	pre     roast.PreCommitment
	iToShare map[uint64]*big.Int
}

// Model is the pure coordinator state machine described by the
// coordinator-model invariants: |ready| < t at all times; |malicious| <=
// n-t; malicious and ready are disjoint; every ready participant has a
// cached pre-nonce; a participant belongs to at most one open session.
type Model struct {
	x    curve.Point
	iToX map[uint64]curve.Point
	t    int
	n    int
	msg  []byte

	ready     map[uint64]struct{}
	malicious map[uint64]struct{}
	iToPre    map[uint64]roast.PreCommitment
	iToSid    map[uint64]uint64

	sidCtr    uint64
	sessions  map[uint64]*sessionState
}

// NewModel constructs a Model for a fixed group key, per-participant
// public shares, threshold, and message to be signed.
func NewModel(x curve.Point, iToX map[uint64]curve.Point, t, n int, msg []byte) *Model {
	return &Model{
		x:         x,
		iToX:      iToX,
		t:         t,
		n:         n,
		msg:       msg,
		ready:     make(map[uint64]struct{}),
		malicious: make(map[uint64]struct{}),
		iToPre:    make(map[uint64]roast.PreCommitment),
		iToSid:    make(map[uint64]uint64),
		sessions:  make(map[uint64]*sessionState),
	}
}

// Malicious returns a snapshot of the participants marked malicious so
// far. The returned slice is a copy; the set itself never shrinks.
func (m *Model) Malicious() []uint64 {
	out := make([]uint64, 0, len(m.malicious))
	for i := range m.malicious {
		out = append(out, i)
	}
	return out
}

// Ready returns a snapshot of the current readiness pool.
func (m *Model) Ready() []uint64 {
	out := make([]uint64, 0, len(m.ready))
	for i := range m.ready {
		out = append(out, i)
	}
	return out
}

func (m *Model) markMalicious(i uint64) {
	delete(m.ready, i)
	m.malicious[i] = struct{}{}
}

// HandleIncoming implements the coordinator model's single transition
// function. sI is nil to signal an initial pre-nonce post-init (the
// protocol's s_i = bottom). shareIsValid is the result of running
// roast.ShareVal(ctx, i, sI) off the event loop, so share validation never
// runs here; HandleIncoming still does the point arithmetic of nonce
// aggregation when a session opens and of signature aggregation when one
// completes.
//
// Returns a *ProtocolError of kind InvariantBreach if this event pushes
// |malicious| past n-t; the offending participant is still marked
// malicious in that case, and the caller must treat the run as failed.
func (m *Model) HandleIncoming(
	i uint64,
	sI *big.Int,
	preI roast.PreCommitment,
	shareIsValid bool,
) (Action, error) {
	// 1. Already-excluded participants can never re-enter.
	if _, bad := m.malicious[i]; bad {
		return Action{Type: NoOp}, nil
	}

	// 2. Duplicate nonce submission, or a share with no preceding nonce:
	// both are protocol violations.
	_, isReady := m.ready[i]
	_, hasPre := m.iToPre[i]
	if isReady || (!hasPre && sI != nil) {
		if err := m.markMaliciousChecked(i); err != nil {
			return Action{}, err
		}
		return Action{Type: NoOp}, nil
	}

	// 3. A signing share for the session i currently belongs to.
	if sI != nil {
		if !shareIsValid {
			if err := m.markMaliciousChecked(i); err != nil {
				return Action{}, err
			}
			return Action{Type: NoOp}, nil
		}

		sid := m.iToSid[i]
		sess := m.sessions[sid]
		sess.iToShare[i] = sI

		if len(sess.iToShare) == m.t {
			ctx := roast.SessionContext{
				X:    m.x,
				ItoX: m.iToX,
				Msg:  m.msg,
				T:    sess.t,
				Pre:  sess.pre,
			}
			sig, err := roast.SignAgg(ctx, sess.iToShare)
			if err != nil {
				return Action{}, newError(InvariantBreach, "sign_agg on complete session %d: %v", sid, err)
			}
			delete(m.sessions, sid)
			return Action{
				Type: SessionSuccess,
				Success: &SuccessPayload{Sid: sid, Ctx: ctx, Sig: sig},
			}, nil
		}
	}

	// 4. Accept the fresh pre-nonce and join the readiness pool. A valid
	// share that did not complete its session also lands here, since a sign
	// response carries the participant's next pre-nonce.
	m.iToPre[i] = preI
	m.ready[i] = struct{}{}

	// 5. A full t-subset is ready: open a session.
	if len(m.ready) == m.t {
		m.sidCtr++
		sid := m.sidCtr

		t := make([]uint64, 0, m.t)
		for j := range m.ready {
			t = append(t, j)
		}

		pre := roast.PreAgg(m.iToPre, t)

		sess := &sessionState{
			t:        t,
			pre:      pre,
			iToShare: make(map[uint64]*big.Int, m.t),
		}
		m.sessions[sid] = sess

		start := make([]ScheduledContext, 0, m.t)
		for _, j := range t {
			m.iToSid[j] = sid
			ctx := roast.SessionContext{
				X:    m.x,
				ItoX: m.iToX,
				Msg:  m.msg,
				T:    t,
				Pre:  pre,
				PreI: m.iToPre[j],
			}
			start = append(start, ScheduledContext{I: j, Ctx: ctx})
		}

		m.ready = make(map[uint64]struct{})

		return Action{Type: SessionStart, Start: start}, nil
	}

	// 6. Otherwise nothing observable happens yet.
	return Action{Type: NoOp}, nil
}

// markMaliciousChecked marks i malicious and enforces invariant 2
// (|malicious| <= n-t). n-t is the maximum number of actively malicious
// or unresponsive participants the protocol tolerates; exceeding it means
// the honest-majority assumption this coordinator relies on no longer
// holds.
func (m *Model) markMaliciousChecked(i uint64) error {
	m.markMalicious(i)
	if len(m.malicious) > m.n-m.t {
		return newError(
			InvariantBreach,
			"malicious set size %d exceeds n-t=%d", len(m.malicious), m.n-m.t,
		)
	}
	return nil
}
