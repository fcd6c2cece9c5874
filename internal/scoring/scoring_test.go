package scoring_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lid-trainer/backend/internal/domain/question"
	"github.com/lid-trainer/backend/internal/domain/testresult"
	"github.com/lid-trainer/backend/internal/domain/testsession"
	"github.com/lid-trainer/backend/internal/scoring"
)

var start = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newSession(n int, categories ...string) *testsession.TestSession {
	qs := make([]question.Question, n)
	for i := range qs {
		qs[i] = question.Question{
			ID:       fmt.Sprintf("q%d", i+1),
			Number:   question.Number(fmt.Sprint(i + 1)),
			Solution: question.OptionA,
			Category: categories[i%len(categories)],
		}
	}
	return testsession.New("", "de", qs, start)
}

// answer marks the first correct questions right, the next wrong ones wrong
// and leaves the rest unanswered.
func answer(s *testsession.TestSession, correct, wrong int) {
	for i := 0; i < correct; i++ {
		s.Answers[s.Questions[i].ID] = question.OptionA
	}
	for i := correct; i < correct+wrong; i++ {
		s.Answers[s.Questions[i].ID] = question.OptionC
	}
}

func TestScorePassThreshold(t *testing.T) {
	tests := []struct {
		name    string
		correct int
		passed  bool
	}{
		{"30 of 33 passes", 30, true},
		{"29 of 33 fails", 29, false},
		{"33 of 33 passes", 33, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(33, "Politik")
			answer(s, tt.correct, 33-tt.correct)
			snap := scoring.Score(s, start.Add(20*time.Minute))
			assert.Equal(t, tt.correct, snap.Score)
			assert.Equal(t, tt.passed, snap.Passed)
		})
	}
}

func TestScoreCountsAddUp(t *testing.T) {
	s := newSession(33, "Politik", "Geschichte", "Gesellschaft")
	answer(s, 20, 7)

	snap := scoring.Score(s, start.Add(30*time.Minute))
	assert.Equal(t, 20, snap.Score)
	assert.Equal(t, 7, snap.Incorrect)
	assert.Equal(t, 6, snap.Unanswered)
	assert.Equal(t, snap.Total, snap.Score+snap.Incorrect+snap.Unanswered)
	assert.Equal(t, 61, snap.Percentage) // round(20/33*100)
	assert.Len(t, snap.Mistakes, 7)
	assert.Len(t, snap.Correct, 20)
	assert.Len(t, snap.UnansweredQuestions, 6)
}

func TestScoreCategoryAccuracyUsesAttempted(t *testing.T) {
	s := newSession(4, "A", "A", "B", "B")
	// q1 (A) right, q2 (A) unanswered, q3 (B) wrong, q4 (B) unanswered
	s.Answers["q1"] = question.OptionA
	s.Answers["q3"] = question.OptionD

	snap := scoring.Score(s, start.Add(time.Minute))
	assert.Equal(t, testresult.CategoryStats{Correct: 1, Total: 2, Attempted: 1, Accuracy: 100}, snap.Breakdown["A"])
	assert.Equal(t, testresult.CategoryStats{Correct: 0, Total: 2, Attempted: 1, Accuracy: 0}, snap.Breakdown["B"])
}

func TestScoreUnattemptedCategoryHasZeroAccuracy(t *testing.T) {
	s := newSession(2, "A", "B")
	s.Answers["q1"] = question.OptionA

	snap := scoring.Score(s, start)
	assert.Equal(t, 0, snap.Breakdown["B"].Accuracy)
	assert.Equal(t, 0, snap.Breakdown["B"].Attempted)
}

func TestScoreTiming(t *testing.T) {
	s := newSession(10, "A")
	answer(s, 5, 0)

	snap := scoring.Score(s, start.Add(75*time.Minute))
	assert.Equal(t, 75*time.Minute, snap.Timing.Elapsed)
	assert.Equal(t, 15*time.Minute, snap.Timing.AveragePerAnswer)
	assert.True(t, snap.Timing.Overtime)

	snap = scoring.Score(s, start.Add(-time.Minute))
	assert.Zero(t, snap.Timing.Elapsed)
}

func TestScoreDoesNotMutateSession(t *testing.T) {
	s := newSession(5, "A")
	answer(s, 2, 1)
	before := s.Clone()

	scoring.Score(s, start.Add(time.Hour))
	assert.Equal(t, before, s)
}

func TestAnalyzePatterns(t *testing.T) {
	breakdown := map[string]testresult.CategoryStats{
		"Stark":   {Accuracy: 90},
		"Mittel":  {Accuracy: 70},
		"Schwach": {Accuracy: 40},
	}
	p := scoring.Analyze(breakdown, nil)
	assert.Equal(t, []string{"Stark"}, p.Strong)
	assert.Equal(t, []string{"Schwach"}, p.Weak)
	assert.Equal(t, 0.0, p.Consistency) // variance 422.2 exceeds 100

	even := map[string]testresult.CategoryStats{"A": {Accuracy: 80}, "B": {Accuracy: 84}}
	assert.InDelta(t, 96.0, scoring.Analyze(even, nil).Consistency, 0.001)
}

func TestAnalyzeTrend(t *testing.T) {
	repeat := func(pattern ...bool) []bool {
		var out []bool
		for _, p := range pattern {
			for i := 0; i < 8; i++ {
				out = append(out, p)
			}
		}
		return out
	}
	tests := []struct {
		name string
		hits []bool
		want scoring.Trend
	}{
		{"improving", repeat(false, false, true, true), scoring.TrendImproving},
		{"declining", repeat(true, true, false, false), scoring.TrendDeclining},
		{"consistent", repeat(true, true, true, true), scoring.TrendConsistent},
		{"mixed", repeat(true, false, true, true), scoring.TrendMixed},
		{"too short", []bool{true}, scoring.TrendConsistent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoring.Analyze(nil, tt.hits).Trend)
		})
	}
}

func TestSnapshotResult(t *testing.T) {
	s := newSession(33, "Politik")
	answer(s, 30, 3)
	end := start.Add(42 * time.Minute)

	res := scoring.Score(s, end).Result("r1")
	assert.Equal(t, "r1", res.ID)
	assert.Equal(t, s.ID, res.SessionID)
	assert.Equal(t, 30, res.Score)
	assert.True(t, res.Passed)
	assert.Len(t, res.Mistakes, 3)
	assert.Equal(t, 0, res.UnansweredQuestions)
	assert.True(t, res.Completed)
	assert.Equal(t, 42*60, res.TimeTakenSeconds)
	assert.Equal(t, end, res.CompletedAt)
	assert.Equal(t, testresult.TypeNormal, res.Type)
	assert.True(t, res.Consistent())
}

func TestSnapshotResultForPractice(t *testing.T) {
	qs := newSession(5, "A").Questions
	s := testsession.NewMistakePractice("de", qs, testsession.MistakeProvenance{
		Type:          testsession.PracticeTests,
		SourceTestIDs: []string{"r1", "r2"},
	}, start)
	answer(s, 5, 0)

	res := scoring.Score(s, start.Add(time.Minute)).Result("p1")
	assert.Equal(t, testresult.TypeMistakePractice, res.Type)
	assert.Equal(t, []string{"r1", "r2"}, res.SourceTestIDs)
	assert.False(t, res.Passed, "five correct answers never reach the fixed threshold")
	assert.NotNil(t, res.Mistakes)
}

func TestSummarize(t *testing.T) {
	results := []*testresult.TestResult{
		{ID: "a", Score: 31, TotalQuestions: 33, Percentage: 94, Passed: true,
			CategoryBreakdown: map[string]testresult.CategoryStats{"A": {Correct: 3, Total: 4, Attempted: 4}}},
		{ID: "b", Score: 20, TotalQuestions: 33, Percentage: 61, UnansweredQuestions: 13,
			CategoryBreakdown: map[string]testresult.CategoryStats{"A": {Correct: 0, Total: 2, Attempted: 2}, "B": {Correct: 1, Total: 1, Attempted: 1}}},
		{ID: "broken", Score: 40, TotalQuestions: 33},
		nil,
	}

	sum := scoring.Summarize(results)
	assert.Equal(t, 2, sum.Attempts)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, 1, sum.Passed)
	assert.Equal(t, 50, sum.PassRate)
	assert.Equal(t, 25.5, sum.AverageScore)
	assert.Equal(t, 78, sum.AveragePercentage)
	assert.Equal(t, 31, sum.BestScore)
	require.Contains(t, sum.Categories, "A")
	assert.Equal(t, 50, sum.Categories["A"].Accuracy)
	assert.Equal(t, []string{"A"}, sum.WeakCategories)
}
