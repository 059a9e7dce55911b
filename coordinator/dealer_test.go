package coordinator

import (
	"math/big"
	"testing"

	"github.com/roastsig/roast/curve"
	"github.com/roastsig/roast/shamir"
)

func TestDealerKeygenSharesReconstructGroupKey(t *testing.T) {
	const th, n = 4, 7
	d, err := DealerKeygen(th, n)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.IToSk) != n || len(d.IToX) != n {
		t.Fatalf("expected %d shares, got sk=%d x=%d", n, len(d.IToSk), len(d.IToX))
	}

	subset := map[uint64]*big.Int{1: d.IToSk[1], 3: d.IToSk[3], 5: d.IToSk[5], 7: d.IToSk[7]}
	recovered := shamir.RecoverSecret(subset)

	if got := curve.BaseMul(recovered); got.X.Cmp(d.X.X) != 0 || got.Y.Cmp(d.X.Y) != 0 {
		t.Errorf("recovered secret does not reconstruct the dealt group key")
	}
}

func TestDealerKeygenPublicSharesMatchSecretShares(t *testing.T) {
	const th, n = 2, 4
	d, err := DealerKeygen(th, n)
	if err != nil {
		t.Fatal(err)
	}
	for i, sk := range d.IToSk {
		want := curve.BaseMul(sk)
		got := d.IToX[i]
		if got.X.Cmp(want.X) != 0 || got.Y.Cmp(want.Y) != 0 {
			t.Errorf("participant %d: public share does not match sk_i*G", i)
		}
	}
}
