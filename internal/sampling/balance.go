package sampling

import (
	"math"
	"math/rand"
	"sort"

	"github.com/lid-trainer/backend/internal/domain/question"
)

type group struct {
	category  string
	questions []question.Question
	ideal     float64
	target    int
}

// groupByCategory keeps pool order inside each group and returns the groups
// sorted by category name so iteration never depends on map order.
func groupByCategory(pool []question.Question) []*group {
	byName := make(map[string]*group)
	for _, q := range pool {
		g, ok := byName[q.Category]
		if !ok {
			g = &group{category: q.Category}
			byName[q.Category] = g
		}
		g.questions = append(g.questions, q)
	}
	groups := make([]*group, 0, len(byName))
	for _, g := range byName {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].category < groups[j].category })
	return groups
}

// allocate sets each group's target so that targets sum to n and each stays
// within one of its proportional share. Non-empty groups get at least one
// question while n allows it.
func allocate(groups []*group, total, n int) {
	sum := 0
	for _, g := range groups {
		g.ideal = float64(n) * float64(len(g.questions)) / float64(total)
		g.target = max(1, int(math.Floor(g.ideal)))
		g.target = min(g.target, len(g.questions))
		sum += g.target
	}

	// the minimum of one can overshoot when n is small
	for sum > n {
		var pick *group
		for _, g := range groups {
			surplus := float64(g.target) - g.ideal
			if g.target > 0 && surplus > 0 && (pick == nil || surplus >= float64(pick.target)-pick.ideal) {
				pick = g
			}
		}
		if pick == nil {
			break
		}
		pick.target--
		sum--
	}

	// rounding remainder goes one unit at a time to the largest fractional
	// part; ties favour the later category
	for sum < n {
		var pick *group
		for _, g := range groups {
			if g.target >= len(g.questions) {
				continue
			}
			gap := g.ideal - float64(g.target)
			if pick == nil || gap >= pick.ideal-float64(pick.target) {
				pick = g
			}
		}
		if pick == nil || pick.ideal-float64(pick.target) <= 0 {
			break
		}
		pick.target++
		sum++
	}
}

// balanced draws n questions from pool in proportion to category sizes.
func balanced(pool []question.Question, n int, rng *rand.Rand) []question.Question {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	n = min(n, len(pool))

	groups := groupByCategory(pool)
	allocate(groups, len(pool), n)

	out := make([]question.Question, 0, n)
	remaining := make([][]question.Question, len(groups))
	for i, g := range groups {
		shuffled := make([]question.Question, len(g.questions))
		for j, k := range rng.Perm(len(g.questions)) {
			shuffled[j] = g.questions[k]
		}
		out = append(out, shuffled[:g.target]...)
		remaining[i] = shuffled[g.target:]
	}

	// shortfall: one at a time from the currently largest remaining category
	for len(out) < n {
		largest := -1
		for i := range remaining {
			if len(remaining[i]) > 0 && (largest < 0 || len(remaining[i]) > len(remaining[largest])) {
				largest = i
			}
		}
		if largest < 0 {
			break
		}
		out = append(out, remaining[largest][0])
		remaining[largest] = remaining[largest][1:]
	}
	return out
}
