package testutils

import (
	"testing"

	"golang.org/x/exp/slices"
)

// AssertUint64SetsEqual checks that expected and actual contain the same
// participant indices, ignoring order.
func AssertUint64SetsEqual(
	t *testing.T,
	description string,
	expected []uint64,
	actual []uint64,
) {
	e := slices.Clone(expected)
	a := slices.Clone(actual)
	slices.Sort(e)
	slices.Sort(a)
	if !slices.Equal(e, a) {
		t.Errorf(
			"unexpected %s\nexpected: %v\nactual:   %v\n",
			description,
			expected,
			actual,
		)
	}
}

// AssertMalignSetGrew checks that actual is a superset of before, the
// monotonicity property the coordinator model's malicious set must hold
// across every handle_incoming call.
func AssertMalignSetGrew(
	t *testing.T,
	description string,
	before []uint64,
	actual []uint64,
) {
	have := make(map[uint64]bool, len(actual))
	for _, i := range actual {
		have[i] = true
	}
	for _, i := range before {
		if !have[i] {
			t.Errorf(
				"%s: participant %d was dropped from a monotonic set (before: %v, after: %v)",
				description, i, before, actual,
			)
		}
	}
}
