// Package participant provides a minimal in-process participant: it
// speaks the wire contract spec.md §6 defines (receive init, receive sign
// request, reply with a nonce or a partial signature) using a
// precomputed pool of fresh pre-nonces. The participant process itself is
// out of scope as a production implementation; this package exists to
// make the coordinator's end-to-end scenarios runnable in tests and the
// benchmark driver.
package participant

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/roastsig/roast/curve"
	"github.com/roastsig/roast/roast"
	"github.com/roastsig/roast/transport"
)

// NonceCache precomputes pre-round nonce pairs ahead of need and hands
// them out FIFO, refilling lazily as they're consumed. Nonce
// precomputation overlaps curve multiplications with I/O waiting; the
// protocol's only requirement is freshness, not how nonces are produced.
type NonceCache struct {
	target int
	pool   []cachedNonce
}

type cachedNonce struct {
	secret     roast.PreSecret
	commitment roast.PreCommitment
}

// NewNonceCache creates a cache that keeps target precomputed nonces on
// hand, filling it immediately.
func NewNonceCache(target int) (*NonceCache, error) {
	c := &NonceCache{target: target}
	if err := c.refill(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *NonceCache) refill() error {
	for len(c.pool) < c.target {
		s, comm, err := roast.PreRound(rand.Read)
		if err != nil {
			return fmt.Errorf("participant: precomputing nonce: %w", err)
		}
		c.pool = append(c.pool, cachedNonce{secret: s, commitment: comm})
	}
	return nil
}

// Take removes and returns the oldest cached nonce, refilling the pool
// before returning so the next Take never blocks on curve arithmetic it
// could have done earlier.
func (c *NonceCache) Take() (roast.PreSecret, roast.PreCommitment, error) {
	if len(c.pool) == 0 {
		if err := c.refill(); err != nil {
			return roast.PreSecret{}, roast.PreCommitment{}, err
		}
	}
	n := c.pool[0]
	c.pool = c.pool[1:]
	if err := c.refill(); err != nil {
		return roast.PreSecret{}, roast.PreCommitment{}, err
	}
	return n.secret, n.commitment, nil
}

// Participant drives one participant's side of a run: it waits for Init,
// pushes its first nonce, then answers sign requests until the link
// closes. A misbehaving participant is simulated by honoring or ignoring
// the coordinator's is_malicious hint: if tamper is non-nil it's applied
// to every computed share before it's sent.
type Participant struct {
	conn   *transport.Conn
	nonces *NonceCache
	tamper func(s *big.Int) *big.Int

	i    uint64
	sk   *big.Int
	x    curve.Point
	spre roast.PreSecret // secret of the pre-nonce last sent to the coordinator
}

// NewParticipant wraps conn with precomputed-nonce bookkeeping. tamper,
// if non-nil, is applied to every partial signature before it is sent —
// used to simulate a misbehaving participant in tests and benchmarks.
func NewParticipant(conn *transport.Conn, cacheSize int, tamper func(*big.Int) *big.Int) (*Participant, error) {
	nonces, err := NewNonceCache(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Participant{conn: conn, nonces: nonces, tamper: tamper}, nil
}

// Run processes frames on conn until it is closed or a fatal decode
// error occurs. It returns nil on a clean close (io.EOF).
func (p *Participant) Run() error {
	for {
		f, err := p.conn.Recv()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("participant: receiving frame: %w", err)
		}

		switch f.Kind {
		case transport.KindInit:
			if err := p.handleInit(f); err != nil {
				return err
			}
		case transport.KindSignRequest:
			if err := p.handleSignRequest(f); err != nil {
				return err
			}
		}
	}
}

func (p *Participant) handleInit(f transport.Frame) error {
	if f.Init == nil {
		return fmt.Errorf("participant: init frame missing body")
	}
	x, err := curve.DeserializePoint(f.Init.X)
	if err != nil {
		return fmt.Errorf("participant: decoding group key: %w", err)
	}
	p.x = x

	p.i = f.Init.I
	p.sk = f.Init.Sk.ToScalar()

	spre, comm, err := p.nonces.Take()
	if err != nil {
		return err
	}
	p.spre = spre

	body := transport.NonceSubmissionBody{
		I:    p.i,
		PreD: curve.SerializePoint(comm.D),
		PreE: curve.SerializePoint(comm.E),
	}
	return p.conn.Send(transport.Frame{RunID: f.RunID, Kind: transport.KindNonceSubmission, NonceSubmission: &body})
}

func (p *Participant) handleSignRequest(f transport.Frame) error {
	if f.SignRequest == nil {
		return fmt.Errorf("participant: sign request frame missing body")
	}

	if f.SignRequest.IsMalicious {
		// Simulated unresponsiveness: drop the request silently.
		return nil
	}

	spre, comm, err := p.nonces.Take()
	if err != nil {
		return err
	}

	preD, err := curve.DeserializePoint(f.SignRequest.PreD)
	if err != nil {
		return fmt.Errorf("participant: decoding aggregate nonce D: %w", err)
	}
	preE, err := curve.DeserializePoint(f.SignRequest.PreE)
	if err != nil {
		return fmt.Errorf("participant: decoding aggregate nonce E: %w", err)
	}

	ctx := roast.SessionContext{
		X:   p.x,
		Msg: f.SignRequest.Msg,
		T:   f.SignRequest.T,
		Pre: roast.PreCommitment{D: preD, E: preE},
	}

	s := roast.SignRound(ctx, p.i, p.sk, p.spre)
	p.spre = spre
	if p.tamper != nil {
		s = p.tamper(s)
	}

	body := transport.NonceSubmissionBody{
		I:    p.i,
		S:    transport.FromScalar(s),
		PreD: curve.SerializePoint(comm.D),
		PreE: curve.SerializePoint(comm.E),
	}
	return p.conn.Send(transport.Frame{RunID: f.RunID, Kind: transport.KindNonceSubmission, NonceSubmission: &body})
}
