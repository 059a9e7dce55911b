package coordinator

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/roastsig/roast/curve"
	"github.com/roastsig/roast/shamir"
)

// Dealer is an insecure, centralized stand-in for distributed key
// generation: it samples a group secret key directly and splits it via
// Shamir. A trusted dealer is acceptable for testing, never for
// production, since it is the single party that ever learns sk in full.
type Dealer struct {
	X      curve.Point
	IToSk  map[uint64]*big.Int
	IToX   map[uint64]curve.Point
}

// DealerKeygen samples a fresh group secret key and splits it t-of-n.
func DealerKeygen(t, n int) (*Dealer, error) {
	sk, err := curve.SampleScalar(rand.Read)
	if err != nil {
		return nil, fmt.Errorf("coordinator: sampling group secret key: %w", err)
	}

	shares, err := shamir.SplitSecret(sk, t, n)
	if err != nil {
		return nil, fmt.Errorf("coordinator: splitting group secret key: %w", err)
	}

	iToX := make(map[uint64]curve.Point, n)
	for i, share := range shares {
		iToX[i] = curve.BaseMul(share)
	}

	return &Dealer{
		X:     curve.BaseMul(sk),
		IToSk: shares,
		IToX:  iToX,
	}, nil
}
