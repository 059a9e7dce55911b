package participant

import "testing"

func TestNonceCacheNeverRepeatsASecret(t *testing.T) {
	c, err := NewNonceCache(3)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		s, _, err := c.Take()
		if err != nil {
			t.Fatal(err)
		}
		key := s.D.String() + "|" + s.E.String()
		if seen[key] {
			t.Fatalf("nonce cache reused a secret on draw %d", i)
		}
		seen[key] = true
	}
}

func TestNonceCacheRefillsToTarget(t *testing.T) {
	const target = 4
	c, err := NewNonceCache(target)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.pool) != target {
		t.Fatalf("expected pool pre-filled to %d, got %d", target, len(c.pool))
	}

	c.Take()
	if len(c.pool) != target {
		t.Errorf("expected pool refilled back to %d after Take, got %d", target, len(c.pool))
	}
}
