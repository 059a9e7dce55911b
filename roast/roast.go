// Package ROAST implements BIP340 specialized version of the ROAST protocol.
//
// [ROAST]
//
//	Ruffing T., Ronge V., Jin E., Schneider-Bensch J., Schroder D.,
//	"ROAST: Robust Asynchronous Schnorr Threshold Signatures"
//	<https://eprint.iacr.org/2022/550.pdf>
//
// [FROST]
//
//	Connolly, D., Komlo, C., Goldberg, I., and C. A. Wood, "Two-Round
//	Threshold Schnorr Signatures with FROST", Work in Progress, Internet-Draft,
//	draft-irtf-cfrg-frost-15, 5 December 2023,
//	<https://datatracker.ietf.org/doc/draft-irtf-cfrg-frost/15/>.
//
// [HASH-TO-CURVE]
//
//	Faz-Hernandez, A., Scott, S., Sullivan, N., Wahby, R. S., and C. A. Wood,
//	"Hashing to Elliptic Curves", Work in Progress, Internet-Draft,
//	draft-irtf-cfrg-hash-to-curve- 16, 15 June 2022,
//	<https://datatracker.ietf.org/doc/html/draft-irtf-cfrg-hash-to-curve-16>.
//
// [RFC8017]
//
//	Moriarty, K., Ed., Kaliski, B., Jonsson, J., and A. Rusch, "PKCS #1: RSA
//	Cryptography Specifications Version 2.2", RFC 8017, DOI 10.17487/RFC8017,
//	November 2016,
//	<https://doi.org/10.17487/RFC8017>.
//
// [BIP0340]
//
//	Wuille, P., Nick, J., and Ruffing, T, "Schnorr Signatures for secp256k1",
//	19 January 2020,
//	<https://github.com/bitcoin/bips/blob/master/bip-0340.mediawiki>.
package roast

import (
	"fmt"
	"math/big"

	"github.com/roastsig/roast/curve"
	"github.com/roastsig/roast/shamir"
)

// PreSecret is a participant's secret pre-round nonce pair (d_i, e_i). It
// must never be reused across signing rounds.
type PreSecret struct {
	D *big.Int
	E *big.Int
}

// PreCommitment is the public commitment (D_i, E_i) to a PreSecret.
type PreCommitment struct {
	D curve.Point
	E curve.Point
}

// Signature is a Schnorr signature (R, s).
type Signature struct {
	R curve.Point
	S *big.Int
}

// SessionContext bundles all public data a participant needs to compute or
// validate one signing round.
type SessionContext struct {
	X    curve.Point            // group public key
	ItoX map[uint64]curve.Point // per-participant public key shares
	Msg  []byte
	T    []uint64      // the chosen t-subset for this session
	Pre  PreCommitment // aggregated session pre-nonce (D, E)
	PreI PreCommitment // this participant's own pre-nonce commitment
}

// PreRound samples a fresh secret nonce pair and returns both the secret
// and its public commitment. rand must be a cryptographically secure
// source (typically crypto/rand.Read).
func PreRound(rand func([]byte) (int, error)) (PreSecret, PreCommitment, error) {
	d, err := curve.SampleScalar(rand)
	if err != nil {
		return PreSecret{}, PreCommitment{}, fmt.Errorf("roast: sampling d_i: %w", err)
	}
	e, err := curve.SampleScalar(rand)
	if err != nil {
		return PreSecret{}, PreCommitment{}, fmt.Errorf("roast: sampling e_i: %w", err)
	}

	secret := PreSecret{D: d, E: e}
	commitment := PreCommitment{
		D: curve.BaseMul(d),
		E: curve.BaseMul(e),
	}
	return secret, commitment, nil
}

// PreAgg aggregates the pre-nonce commitments of every participant in t by
// coordinate-wise point addition.
func PreAgg(iToPre map[uint64]PreCommitment, t []uint64) PreCommitment {
	d := curve.Identity()
	e := curve.Identity()
	for _, i := range t {
		pre := iToPre[i]
		d = curve.Add(d, pre.D)
		e = curve.Add(e, pre.E)
	}
	return PreCommitment{D: d, E: e}
}

// bindingFactor computes b = H("non", X, msg, D, E) mod q.
func bindingFactor(ctx SessionContext) *big.Int {
	return curve.H(
		"non",
		curve.PointItem{Point: ctx.X},
		curve.BytesItem(ctx.Msg),
		curve.PointItem{Point: ctx.Pre.D},
		curve.PointItem{Point: ctx.Pre.E},
	)
}

// SessionNonce computes R = D + b*E, the aggregate session nonce.
func SessionNonce(ctx SessionContext) curve.Point {
	b := bindingFactor(ctx)
	return curve.Add(ctx.Pre.D, curve.Mul(ctx.Pre.E, b))
}

// challenge computes c = H("sig", X, msg, R) mod q.
func challenge(ctx SessionContext, r curve.Point) *big.Int {
	return curve.H(
		"sig",
		curve.PointItem{Point: ctx.X},
		curve.BytesItem(ctx.Msg),
		curve.PointItem{Point: r},
	)
}

// ShareVal reports whether the partial signature s_i submitted by
// participant i is consistent with ctx, without requiring access to i's
// secret key share. This is the predicate the coordinator's robustness
// rests on: if it holds for every i contributing to a session, SignAgg's
// output is guaranteed to verify. Its formula must track SignRound's
// exactly; any drift between the two breaks that guarantee.
func ShareVal(ctx SessionContext, i uint64, sI *big.Int) bool {
	xI, ok := ctx.ItoX[i]
	if !ok {
		return false
	}

	order := curve.Order()
	b := bindingFactor(ctx)
	r := curve.Add(ctx.Pre.D, curve.Mul(ctx.Pre.E, b))
	c := challenge(ctx, r)
	lambda := shamir.Lagrange(ctx.T, i)

	lhs := curve.BaseMul(sI)

	exponent := new(big.Int).Mul(c, lambda)
	exponent.Mod(exponent, order)

	rhs := curve.Add(
		curve.Add(ctx.PreI.D, curve.Mul(ctx.PreI.E, b)),
		curve.Mul(xI, exponent),
	)

	return lhs.X.Cmp(rhs.X) == 0 && lhs.Y.Cmp(rhs.Y) == 0
}

// SignRound computes participant i's partial signature, given ctx, its
// secret key share and its own (still-secret) pre-round nonce.
func SignRound(ctx SessionContext, i uint64, skI *big.Int, spreI PreSecret) *big.Int {
	order := curve.Order()

	b := bindingFactor(ctx)
	r := curve.Add(ctx.Pre.D, curve.Mul(ctx.Pre.E, b))
	c := challenge(ctx, r)
	lambda := shamir.Lagrange(ctx.T, i)

	be := new(big.Int).Mul(b, spreI.E)
	clsk := new(big.Int).Mul(c, lambda)
	clsk.Mul(clsk, skI)

	s := new(big.Int).Add(spreI.D, be)
	s.Add(s, clsk)
	return s.Mod(s, order)
}

// SignAgg sums the partial signatures of every participant in ctx.T to
// produce an aggregate signature. It requires exactly one share per
// participant in ctx.T.
func SignAgg(ctx SessionContext, iToS map[uint64]*big.Int) (Signature, error) {
	if len(iToS) != len(ctx.T) {
		return Signature{}, fmt.Errorf(
			"roast: sign_agg requires %d shares, got %d", len(ctx.T), len(iToS),
		)
	}

	order := curve.Order()
	r := SessionNonce(ctx)

	s := big.NewInt(0)
	for _, i := range ctx.T {
		sI, ok := iToS[i]
		if !ok {
			return Signature{}, fmt.Errorf("roast: sign_agg missing share for participant %d", i)
		}
		s.Add(s, sI)
		s.Mod(s, order)
	}

	return Signature{R: r, S: s}, nil
}

// Verify checks a Schnorr signature against group public key x and
// message msg: s*G == R + c*X.
func Verify(x curve.Point, msg []byte, sig Signature) bool {
	c := curve.H(
		"sig",
		curve.PointItem{Point: x},
		curve.BytesItem(msg),
		curve.PointItem{Point: sig.R},
	)

	lhs := curve.BaseMul(sig.S)
	rhs := curve.Add(sig.R, curve.Mul(x, c))

	return lhs.X.Cmp(rhs.X) == 0 && lhs.Y.Cmp(rhs.Y) == 0
}

// VerifyContext is a convenience wrapper around Verify that pulls the
// group public key and message out of a SessionContext.
func VerifyContext(ctx SessionContext, sig Signature) bool {
	return Verify(ctx.X, ctx.Msg, sig)
}
