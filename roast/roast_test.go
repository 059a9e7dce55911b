package roast

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/roastsig/roast/curve"
	"github.com/roastsig/roast/shamir"
)

// buildGroup creates a t-of-n key setup: a random group secret key, its
// Shamir shares, and the corresponding public key shares.
func buildGroup(t *testing.T, th, n int) (sk *big.Int, x curve.Point, shares map[uint64]*big.Int, itoX map[uint64]curve.Point) {
	t.Helper()

	sk, err := curve.SampleScalar(rand.Read)
	if err != nil {
		t.Fatal(err)
	}
	x = curve.BaseMul(sk)

	shares, err = shamir.SplitSecret(sk, th, n)
	if err != nil {
		t.Fatal(err)
	}

	itoX = make(map[uint64]curve.Point, n)
	for i, s := range shares {
		itoX[i] = curve.BaseMul(s)
	}
	return sk, x, shares, itoX
}

// runSession has every participant in subset produce a pre-round and a
// signing round, then aggregates and returns the resulting signature.
func runSession(t *testing.T, x curve.Point, itoX map[uint64]curve.Point, shares map[uint64]*big.Int, subset []uint64, msg []byte) Signature {
	t.Helper()

	preSecrets := make(map[uint64]PreSecret, len(subset))
	preComms := make(map[uint64]PreCommitment, len(subset))
	for _, i := range subset {
		s, c, err := PreRound(rand.Read)
		if err != nil {
			t.Fatal(err)
		}
		preSecrets[i] = s
		preComms[i] = c
	}

	agg := PreAgg(preComms, subset)

	shareOf := make(map[uint64]*big.Int, len(subset))
	for _, i := range subset {
		ctx := SessionContext{
			X:    x,
			ItoX: itoX,
			Msg:  msg,
			T:    subset,
			Pre:  agg,
			PreI: preComms[i],
		}
		sI := SignRound(ctx, i, shares[i], preSecrets[i])
		if !ShareVal(ctx, i, sI) {
			t.Fatalf("share_val rejected an honestly computed share from participant %d", i)
		}
		shareOf[i] = sI
	}

	ctx := SessionContext{X: x, ItoX: itoX, Msg: msg, T: subset, Pre: agg}
	sig, err := SignAgg(ctx, shareOf)
	if err != nil {
		t.Fatal(err)
	}
	return sig
}

func TestSignatureCompleteness(t *testing.T) {
	const th, n = 3, 5
	sk, x, shares, itoX := buildGroup(t, th, n)
	_ = sk

	msg := []byte("complete honest round")
	subset := []uint64{2, 4, 5}

	sig := runSession(t, x, itoX, shares, subset, msg)
	if !Verify(x, msg, sig) {
		t.Errorf("signature produced by an honest t-subset failed to verify")
	}
}

func TestShareValidityImpliesAggregationSoundness(t *testing.T) {
	const th, n = 4, 6
	_, x, shares, itoX := buildGroup(t, th, n)

	msg := []byte("soundness at share level")
	subset := []uint64{1, 2, 3, 6}

	preSecrets := make(map[uint64]PreSecret, len(subset))
	preComms := make(map[uint64]PreCommitment, len(subset))
	for _, i := range subset {
		s, c, err := PreRound(rand.Read)
		if err != nil {
			t.Fatal(err)
		}
		preSecrets[i] = s
		preComms[i] = c
	}
	agg := PreAgg(preComms, subset)

	shareOf := make(map[uint64]*big.Int, len(subset))
	for _, i := range subset {
		ctx := SessionContext{X: x, ItoX: itoX, Msg: msg, T: subset, Pre: agg, PreI: preComms[i]}
		sI := SignRound(ctx, i, shares[i], preSecrets[i])

		// Every share that ShareVal accepts here, and only those, must
		// be safe to feed into SignAgg: verify that independently.
		if !ShareVal(ctx, i, sI) {
			t.Fatalf("participant %d: honest share rejected by share_val", i)
		}
		shareOf[i] = sI
	}

	ctx := SessionContext{X: x, ItoX: itoX, Msg: msg, T: subset, Pre: agg}
	sig, err := SignAgg(ctx, shareOf)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyContext(ctx, sig) {
		t.Errorf("aggregate of only share_val-accepted shares failed to verify")
	}
}

func TestShareValRejectsForgedShare(t *testing.T) {
	const th, n = 3, 5
	_, x, shares, itoX := buildGroup(t, th, n)

	msg := []byte("forged share")
	subset := []uint64{1, 3, 5}

	preSecrets := make(map[uint64]PreSecret, len(subset))
	preComms := make(map[uint64]PreCommitment, len(subset))
	for _, i := range subset {
		s, c, err := PreRound(rand.Read)
		if err != nil {
			t.Fatal(err)
		}
		preSecrets[i] = s
		preComms[i] = c
	}
	agg := PreAgg(preComms, subset)

	i := uint64(1)
	ctx := SessionContext{X: x, ItoX: itoX, Msg: msg, T: subset, Pre: agg, PreI: preComms[i]}
	honest := SignRound(ctx, i, shares[i], preSecrets[i])

	forged := new(big.Int).Add(honest, big.NewInt(1))
	if ShareVal(ctx, i, forged) {
		t.Errorf("share_val accepted a tampered share")
	}
}

func TestVerifyRejectsWrongMessage(t *testing.T) {
	const th, n = 2, 3
	_, x, shares, itoX := buildGroup(t, th, n)

	subset := []uint64{1, 2}
	sig := runSession(t, x, itoX, shares, subset, []byte("original"))

	if Verify(x, []byte("tampered"), sig) {
		t.Errorf("signature verified against the wrong message")
	}
}

func TestSignAggRejectsIncompleteShareSet(t *testing.T) {
	ctx := SessionContext{T: []uint64{1, 2, 3}}
	_, err := SignAgg(ctx, map[uint64]*big.Int{1: big.NewInt(1), 2: big.NewInt(2)})
	if err == nil {
		t.Errorf("expected sign_agg to reject a share set smaller than t")
	}
}
