package main

import (
	"sort"
)

// CalculateAggregateRankings computes each model's average position across
// the parsed rankings. A label at position i (1-based) contributes i to the
// model behind it; labels a ranking omits contribute nothing. Labels that do
// not belong to the round are skipped and take no position. Models never
// ranked are left out.
//
// The result is sorted by average rank (lower is better), then by number of
// rankings (more first), then by the model's position in councilOrder.
func CalculateAggregateRankings(rankings [][]string, labels *AnonymizedSet, councilOrder []string) []AggregateRanking {
	sums := make(map[string]int)
	counts := make(map[string]int)

	for _, parsed := range rankings {
		position := 0
		for _, label := range parsed {
			model, err := labels.Reveal(label)
			if err != nil {
				continue
			}
			position++
			sums[model] += position
			counts[model]++
		}
	}

	aggregate := make([]AggregateRanking, 0, len(counts))
	for model, n := range counts {
		aggregate = append(aggregate, AggregateRanking{
			Model:         model,
			AverageRank:   float64(sums[model]) / float64(n),
			RankingsCount: n,
		})
	}

	order := make(map[string]int, len(councilOrder))
	for i, m := range councilOrder {
		if _, ok := order[m]; !ok {
			order[m] = i
		}
	}
	rank := func(model string) int {
		if i, ok := order[model]; ok {
			return i
		}
		return len(councilOrder)
	}

	sort.Slice(aggregate, func(i, j int) bool {
		a, b := aggregate[i], aggregate[j]
		if a.AverageRank != b.AverageRank {
			return a.AverageRank < b.AverageRank
		}
		if a.RankingsCount != b.RankingsCount {
			return a.RankingsCount > b.RankingsCount
		}
		if ra, rb := rank(a.Model), rank(b.Model); ra != rb {
			return ra < rb
		}
		return a.Model < b.Model
	})

	return aggregate
}

// parsedRankings collects the non-empty parsed rankings of successful evaluations.
func parsedRankings(stage2 []Stage2Ranking) [][]string {
	var out [][]string
	for _, r := range stage2 {
		if r.Failed() || len(r.ParsedRanking) == 0 {
			continue
		}
		out = append(out, r.ParsedRanking)
	}
	return out
}
