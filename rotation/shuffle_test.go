package rotation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// The draw must be unbiased: over many draws every member should land in
// every position roughly equally often. Exact output is non-deterministic
// by design, so this pins the distribution, not the values.
func TestTurnOrderDrawIsUniform(t *testing.T) {
	const (
		memberCount = 5
		draws       = 6000
	)

	members := make([]string, memberCount)
	for i := range members {
		members[i] = fmt.Sprintf("member-%d", i)
	}

	// counts[member][position]
	counts := make(map[string][]int, memberCount)
	for _, m := range members {
		counts[m] = make([]int, memberCount)
	}

	for i := 0; i < draws; i++ {
		g := waitingGroup(memberCount, members...)
		res, err := GenerateTurnOrder(g)
		require.NoError(t, err)
		for pos, m := range res.Group.TurnOrder {
			counts[m][pos]++
		}
	}

	// Expected hits per (member, position) cell is draws/memberCount.
	// The binomial stddev is ~31 here; a ±15% band is over five sigmas,
	// so a correct shuffle virtually never trips this.
	expected := float64(draws) / float64(memberCount)
	for _, m := range members {
		for pos, n := range counts[m] {
			require.InDeltaf(t, expected, float64(n), expected*0.15,
				"%s at position %d drawn %d times, expected ~%.0f", m, pos, n, expected)
		}
	}
}
