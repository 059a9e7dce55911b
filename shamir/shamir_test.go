package shamir

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/roastsig/roast/curve"
)

func randSubset(n, t int) []uint64 {
	all := make([]uint64, n)
	for i := range all {
		all[i] = uint64(i + 1)
	}
	// simple deterministic-ish subset for test stability: take the first t.
	// TestSplitRecoverAnyTSubset below covers fixed non-prefix subsets.
	return all[:t]
}

func TestSplitRecoverRoundtrip(t *testing.T) {
	order := curve.Order()

	for n := 3; n <= 8; n++ {
		for th := 2; th < n; th++ {
			secret, err := rand.Int(rand.Reader, order)
			if err != nil {
				t.Fatal(err)
			}
			if secret.Sign() == 0 {
				secret.SetInt64(1)
			}

			shares, err := SplitSecret(secret, th, n)
			if err != nil {
				t.Fatalf("SplitSecret(%d, %d): %v", th, n, err)
			}
			if len(shares) != n {
				t.Fatalf("expected %d shares, got %d", n, len(shares))
			}

			subsetIDs := randSubset(n, th)
			subset := make(map[uint64]*big.Int, th)
			for _, id := range subsetIDs {
				subset[id] = shares[id]
			}

			recovered := RecoverSecret(subset)
			if recovered.Cmp(secret) != 0 {
				t.Fatalf("n=%d t=%d: recovered %v != secret %v", n, th, recovered, secret)
			}
		}
	}
}

func TestSplitRecoverAnyTSubset(t *testing.T) {
	const n, th = 7, 4
	order := curve.Order()
	secret, _ := rand.Int(rand.Reader, order)

	shares, err := SplitSecret(secret, th, n)
	if err != nil {
		t.Fatal(err)
	}

	// Every t-subset, not just a prefix, must recover the same secret.
	subsets := [][]uint64{
		{1, 2, 3, 4},
		{4, 5, 6, 7},
		{1, 3, 5, 7},
		{2, 4, 6, 1},
	}

	for _, ids := range subsets {
		subset := make(map[uint64]*big.Int, th)
		for _, id := range ids {
			subset[id] = shares[id]
		}
		recovered := RecoverSecret(subset)
		if recovered.Cmp(secret) != 0 {
			t.Errorf("subset %v: recovered %v != secret %v", ids, recovered, secret)
		}
	}
}

func TestSplitSecretRejectsBadThreshold(t *testing.T) {
	if _, err := SplitSecret(big.NewInt(1), 1, 3); err == nil {
		t.Errorf("expected error for t < 2")
	}
	if _, err := SplitSecret(big.NewInt(1), 5, 3); err == nil {
		t.Errorf("expected error for t > n")
	}
}

func TestLagrangeWeightedSumRecoversSecret(t *testing.T) {
	const n, th = 5, 3
	order := curve.Order()
	secret, _ := rand.Int(rand.Reader, order)

	shares, err := SplitSecret(secret, th, n)
	if err != nil {
		t.Fatal(err)
	}

	tset := []uint64{1, 3, 5}
	z := big.NewInt(0)
	for _, i := range tset {
		lambda := Lagrange(tset, i)
		term := new(big.Int).Mul(lambda, shares[i])
		z.Add(z, term)
		z.Mod(z, order)
	}

	if z.Cmp(secret) != 0 {
		t.Errorf("manual lagrange combination %v != secret %v", z, secret)
	}
}
