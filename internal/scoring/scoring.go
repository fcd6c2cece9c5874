package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/lid-trainer/backend/internal/domain/question"
	"github.com/lid-trainer/backend/internal/domain/testresult"
	"github.com/lid-trainer/backend/internal/domain/testsession"
)

// PassThreshold is the number of correct answers needed to pass. It is a
// raw count, applied unchanged to practice sessions of any length.
const PassThreshold = 30

const (
	StrongAccuracy = 80
	WeakAccuracy   = 60
)

type Trend string

const (
	TrendImproving  Trend = "improving"
	TrendDeclining  Trend = "declining"
	TrendConsistent Trend = "consistent"
	TrendMixed      Trend = "mixed"
)

type Timing struct {
	Elapsed          time.Duration `json:"elapsed"`
	AveragePerAnswer time.Duration `json:"averagePerAnswer"`
	Overtime         bool          `json:"overtime"`
}

type Patterns struct {
	Strong      []string `json:"strong"`
	Weak        []string `json:"weak"`
	Consistency float64  `json:"consistency"`
	Quarters    []int    `json:"quarters"`
	Trend       Trend    `json:"trend"`
}

// Snapshot is the scored state of a session at one point in time.
type Snapshot struct {
	Total      int  `json:"total"`
	Score      int  `json:"score"`
	Incorrect  int  `json:"incorrect"`
	Unanswered int  `json:"unanswered"`
	Percentage int  `json:"percentage"`
	Passed     bool `json:"passed"`

	Mistakes            []question.Question `json:"mistakes"`
	Correct             []question.Question `json:"correct"`
	UnansweredQuestions []question.Question `json:"unansweredQuestions"`

	Breakdown map[string]testresult.CategoryStats `json:"categoryBreakdown"`
	Timing    Timing                              `json:"timing"`
	Patterns  Patterns                            `json:"patterns"`

	SessionID string                         `json:"sessionId"`
	State     string                         `json:"state"`
	End       time.Time                      `json:"end"`
	Practice  *testsession.MistakeProvenance `json:"practice,omitempty"`
}

// Score computes the snapshot of s as if it ended at end. It does not
// modify s.
func Score(s *testsession.TestSession, end time.Time) *Snapshot {
	snap := &Snapshot{
		Total:     len(s.Questions),
		Breakdown: make(map[string]testresult.CategoryStats),
		SessionID: s.ID,
		State:     s.StateFilter,
		End:       end,
		Practice:  s.Practice,
	}

	hits := make([]bool, len(s.Questions))
	for i := range s.Questions {
		q := s.Questions[i]
		stats := snap.Breakdown[q.Category]
		stats.Total++

		answer, answered := s.Answers[q.ID]
		switch {
		case !answered:
			snap.Unanswered++
			snap.UnansweredQuestions = append(snap.UnansweredQuestions, q)
		case q.IsCorrect(answer):
			snap.Score++
			stats.Attempted++
			stats.Correct++
			hits[i] = true
			snap.Correct = append(snap.Correct, q)
		default:
			snap.Incorrect++
			stats.Attempted++
			snap.Mistakes = append(snap.Mistakes, q)
		}
		snap.Breakdown[q.Category] = stats
	}

	for cat, stats := range snap.Breakdown {
		stats.Accuracy = percent(stats.Correct, stats.Attempted)
		snap.Breakdown[cat] = stats
	}

	snap.Percentage = percent(snap.Score, snap.Total)
	snap.Passed = snap.Score >= PassThreshold

	elapsed := end.Sub(s.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	snap.Timing.Elapsed = elapsed
	snap.Timing.Overtime = elapsed > testsession.TimeLimit
	if answered := snap.Score + snap.Incorrect; answered > 0 {
		snap.Timing.AveragePerAnswer = elapsed / time.Duration(answered)
	}

	snap.Patterns = Analyze(snap.Breakdown, hits)
	return snap
}

// Analyze classifies categories and the course of the attempt. hits holds
// per-question correctness in question order.
func Analyze(breakdown map[string]testresult.CategoryStats, hits []bool) Patterns {
	p := Patterns{Strong: []string{}, Weak: []string{}, Consistency: 100}

	names := make([]string, 0, len(breakdown))
	for name := range breakdown {
		names = append(names, name)
	}
	sort.Strings(names)

	accuracies := make([]float64, 0, len(names))
	for _, name := range names {
		acc := breakdown[name].Accuracy
		accuracies = append(accuracies, float64(acc))
		switch {
		case acc >= StrongAccuracy:
			p.Strong = append(p.Strong, name)
		case acc < WeakAccuracy:
			p.Weak = append(p.Weak, name)
		}
	}
	p.Consistency = math.Max(0, 100-variance(accuracies))

	p.Quarters = quarters(hits)
	p.Trend = trend(p.Quarters)
	return p
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var v float64
	for _, x := range xs {
		v += (x - mean) * (x - mean)
	}
	return v / float64(len(xs))
}

// quarters returns the correctness percentage of each non-empty quarter.
func quarters(hits []bool) []int {
	out := make([]int, 0, 4)
	n := len(hits)
	for q := 0; q < 4; q++ {
		lo, hi := q*n/4, (q+1)*n/4
		if hi == lo {
			continue
		}
		correct := 0
		for _, h := range hits[lo:hi] {
			if h {
				correct++
			}
		}
		out = append(out, percent(correct, hi-lo))
	}
	return out
}

func trend(qs []int) Trend {
	if len(qs) < 2 {
		return TrendConsistent
	}
	first, last := qs[0], qs[len(qs)-1]
	lo, hi := qs[0], qs[0]
	for _, v := range qs[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	switch {
	case last-first > 20:
		return TrendImproving
	case first-last > 20:
		return TrendDeclining
	case hi-lo < 10:
		return TrendConsistent
	default:
		return TrendMixed
	}
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// Result freezes the snapshot into a stored result.
func (s *Snapshot) Result(id string) *testresult.TestResult {
	res := &testresult.TestResult{
		ID:                  id,
		SessionID:           s.SessionID,
		Score:               s.Score,
		TotalQuestions:      s.Total,
		Percentage:          s.Percentage,
		Passed:              s.Passed,
		Mistakes:            nonNil(s.Mistakes),
		CorrectAnswers:      nonNil(s.Correct),
		CompletedAt:         s.End,
		State:               s.State,
		TimeTakenSeconds:    int(s.Timing.Elapsed / time.Second),
		CategoryBreakdown:   s.Breakdown,
		Completed:           s.Unanswered == 0,
		UnansweredQuestions: s.Unanswered,
		Type:                testresult.TypeNormal,
	}
	if s.Practice != nil {
		res.Type = testresult.TypeMistakePractice
		res.SourceTestIDs = append([]string(nil), s.Practice.SourceTestIDs...)
	}
	return res
}

func nonNil(qs []question.Question) []question.Question {
	if qs == nil {
		return []question.Question{}
	}
	return qs
}
