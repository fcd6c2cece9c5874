package scoring

import (
	"math"
	"sort"

	"github.com/lid-trainer/backend/internal/domain/testresult"
)

// Summary aggregates stored results for the progress overview.
type Summary struct {
	Attempts          int                                 `json:"attempts"`
	Passed            int                                 `json:"passed"`
	PassRate          int                                 `json:"passRate"`
	AverageScore      float64                             `json:"averageScore"`
	AveragePercentage int                                 `json:"averagePercentage"`
	BestScore         int                                 `json:"bestScore"`
	Categories        map[string]testresult.CategoryStats `json:"categories"`
	WeakCategories    []string                            `json:"weakCategories"`
	Skipped           int                                 `json:"skipped"`
}

// Summarize aggregates results. Records that fail the score invariant are
// counted in Skipped and otherwise ignored.
func Summarize(results []*testresult.TestResult) Summary {
	sum := Summary{
		Categories:     make(map[string]testresult.CategoryStats),
		WeakCategories: []string{},
	}

	var scoreTotal, pctTotal int
	for _, r := range results {
		if r == nil || !r.Consistent() {
			sum.Skipped++
			continue
		}
		sum.Attempts++
		if r.Passed {
			sum.Passed++
		}
		scoreTotal += r.Score
		pctTotal += r.Percentage
		sum.BestScore = max(sum.BestScore, r.Score)

		for cat, stats := range r.CategoryBreakdown {
			agg := sum.Categories[cat]
			agg.Correct += stats.Correct
			agg.Total += stats.Total
			agg.Attempted += stats.Attempted
			sum.Categories[cat] = agg
		}
	}

	if sum.Attempts > 0 {
		sum.PassRate = percent(sum.Passed, sum.Attempts)
		sum.AverageScore = math.Round(float64(scoreTotal)/float64(sum.Attempts)*10) / 10
		sum.AveragePercentage = int(math.Round(float64(pctTotal) / float64(sum.Attempts)))
	}

	for cat, agg := range sum.Categories {
		agg.Accuracy = percent(agg.Correct, agg.Attempted)
		sum.Categories[cat] = agg
		if agg.Attempted > 0 && agg.Accuracy < WeakAccuracy {
			sum.WeakCategories = append(sum.WeakCategories, cat)
		}
	}
	sort.Strings(sum.WeakCategories)
	return sum
}
