// Package shamir implements Shamir secret sharing and Lagrange
// interpolation modulo the secp256k1 group order, as used by ROAST to
// reconstruct a group secret key from t-of-n participant shares.
package shamir

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/roastsig/roast/curve"
)

// SplitSecret evaluates a uniformly random degree-(t-1) polynomial with
// constant term secret at x = 1..n, returning the share for each
// participant index. It implements spec.md §4.2's split_secret.
func SplitSecret(secret *big.Int, t, n int) (map[uint64]*big.Int, error) {
	if t < 2 || t > n {
		return nil, fmt.Errorf("shamir: invalid threshold t=%d for n=%d", t, n)
	}

	coeffs := make([]*big.Int, t)
	coeffs[0] = new(big.Int).Mod(secret, curve.Order())
	for i := 1; i < t; i++ {
		c, err := curve.SampleScalar(rand.Read)
		if err != nil {
			return nil, fmt.Errorf("shamir: sampling coefficient: %w", err)
		}
		coeffs[i] = c
	}

	shares := make(map[uint64]*big.Int, n)
	for i := 1; i <= n; i++ {
		shares[uint64(i)] = polyEval(coeffs, int64(i))
	}
	return shares, nil
}

// polyEval evaluates the polynomial defined by coeffs (constant term first)
// at x, modulo the curve order.
func polyEval(coeffs []*big.Int, x int64) *big.Int {
	order := curve.Order()
	bigX := big.NewInt(x)

	y := big.NewInt(0)
	for i, c := range coeffs {
		term := new(big.Int).Exp(bigX, big.NewInt(int64(i)), order)
		term.Mul(term, c)
		y.Add(y, term)
		y.Mod(y, order)
	}
	return y
}

// Lagrange computes λ_i(T) = Π_{j∈T, j≠i} j·(j−i)^(-1) mod q, the
// interpolation coefficient for index i over the subset T, as defined in
// spec.md §4.2. T need not be sorted; i must be a member of T.
func Lagrange(t []uint64, i uint64) *big.Int {
	order := curve.Order()

	num := big.NewInt(1)
	den := big.NewInt(1)
	for _, j := range t {
		if j == i {
			continue
		}
		num.Mul(num, new(big.Int).SetUint64(j))
		num.Mod(num, order)

		diff := new(big.Int).Sub(new(big.Int).SetUint64(j), new(big.Int).SetUint64(i))
		den.Mul(den, diff)
		den.Mod(den, order)
	}

	denInv := new(big.Int).ModInverse(den, order)
	res := new(big.Int).Mul(num, denInv)
	return res.Mod(res, order)
}

// RecoverSecret reconstructs the polynomial's constant term from a set of
// shares keyed by participant index, via Lagrange interpolation at x = 0.
// It implements spec.md §4.2's recover_secret.
func RecoverSecret(shares map[uint64]*big.Int) *big.Int {
	t := make([]uint64, 0, len(shares))
	for i := range shares {
		t = append(t, i)
	}

	order := curve.Order()
	z := big.NewInt(0)
	for i, y := range shares {
		term := new(big.Int).Mul(Lagrange(t, i), y)
		z.Add(z, term)
		z.Mod(z, order)
	}
	return z
}
