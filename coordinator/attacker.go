package coordinator

import (
	"crypto/rand"
	"math/big"
)

// AttackerLevel selects how an attacker strategy picks which ready
// participants behave maliciously in a given session, for benchmark
// purposes only; it has no bearing on the coordinator model itself.
type AttackerLevel int

const (
	// Static always returns the same fixed set of f malicious identities.
	Static AttackerLevel = iota
	// StaticCoordination returns at most one malicious identity per
	// session, drawn from the fixed malicious set intersected with the
	// session's participants.
	StaticCoordination
	// Adaptive picks a fresh victim from the session for each of the
	// first f sessions, then stops attacking.
	Adaptive
)

func (l AttackerLevel) String() string {
	switch l {
	case Static:
		return "static"
	case StaticCoordination:
		return "static-coordination"
	case Adaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

// AttackerStrategy decides, given a session's participant set T and the
// 1-based count of sessions opened so far, which participants should be
// simulated as malicious this round. The returned set exists only to drive the
// benchmark harness's is_malicious wire flag; production deployments omit
// it entirely.
type AttackerStrategy struct {
	level     AttackerLevel
	fixed     map[uint64]struct{}
	f         int
}

// NewAttackerStrategy draws a fixed set of f malicious identities from
// {1..n} without replacement via crypto/rand, and returns a strategy that
// applies level's rule against that fixed set.
func NewAttackerStrategy(level AttackerLevel, n, f int) (*AttackerStrategy, error) {
	fixed, err := sampleWithoutReplacement(n, f)
	if err != nil {
		return nil, err
	}
	return &AttackerStrategy{level: level, fixed: fixed, f: f}, nil
}

// Choose returns the identities that should act maliciously in the
// sessionIndex'th session opened (1-based). For StaticCoordination and
// Adaptive the result is a subset of t; for Static it is the whole fixed
// set, which may include identities outside t.
func (a *AttackerStrategy) Choose(t []uint64, sessionIndex int) map[uint64]struct{} {
	switch a.level {
	case Static:
		out := make(map[uint64]struct{}, len(a.fixed))
		for i := range a.fixed {
			out[i] = struct{}{}
		}
		return out
	case StaticCoordination:
		for _, i := range t {
			if _, ok := a.fixed[i]; ok {
				return map[uint64]struct{}{i: {}}
			}
		}
		return map[uint64]struct{}{}
	case Adaptive:
		if sessionIndex > a.f || len(t) == 0 {
			return map[uint64]struct{}{}
		}
		return map[uint64]struct{}{t[sessionIndex%len(t)]: {}}
	default:
		return map[uint64]struct{}{}
	}
}

// sampleWithoutReplacement draws k distinct values from {1..n} using
// crypto/rand via a Fisher-Yates partial shuffle.
func sampleWithoutReplacement(n, k int) (map[uint64]struct{}, error) {
	pool := make([]uint64, n)
	for i := range pool {
		pool[i] = uint64(i + 1)
	}

	for i := 0; i < k; i++ {
		jBig, err := rand.Int(rand.Reader, big.NewInt(int64(n-i)))
		if err != nil {
			return nil, err
		}
		j := i + int(jBig.Int64())
		pool[i], pool[j] = pool[j], pool[i]
	}

	out := make(map[uint64]struct{}, k)
	for i := 0; i < k; i++ {
		out[pool[i]] = struct{}{}
	}
	return out, nil
}
