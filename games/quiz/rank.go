/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import "sort"

// Rank computes final standings: eliminated players are excluded and the
// rest are ordered by score, highest first. The winner is the first
// entry. Ties keep roster order, so standings are deterministic.
func Rank(players []Player) []Player {
	ranked := make([]Player, 0, len(players))
	for _, p := range players {
		if p.Eliminated {
			continue
		}
		ranked = append(ranked, p)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}
