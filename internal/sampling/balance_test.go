package sampling

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lid-trainer/backend/internal/domain/question"
)

func poolOf(sizes ...int) []question.Question {
	var pool []question.Question
	for c, size := range sizes {
		for i := 0; i < size; i++ {
			pool = append(pool, question.Question{
				ID:       fmt.Sprintf("c%d-%d", c, i),
				Category: fmt.Sprintf("cat-%02d", c),
			})
		}
	}
	return pool
}

func TestAllocateStaysWithinOneOfShare(t *testing.T) {
	shapes := [][]int{
		{10, 10, 10},
		{1, 1, 1, 1, 96},
		{50, 30, 15, 4, 1},
		{7},
		{3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3},
	}
	for _, sizes := range shapes {
		pool := poolOf(sizes...)
		for n := 1; n <= len(pool); n++ {
			groups := groupByCategory(pool)
			allocate(groups, len(pool), n)

			sum := 0
			for _, g := range groups {
				assert.LessOrEqual(t, math.Abs(float64(g.target)-g.ideal), 1.0, "sizes %v n %d category %s", sizes, n, g.category)
				assert.LessOrEqual(t, g.target, len(g.questions))
				sum += g.target
			}
			assert.Equal(t, n, sum, "sizes %v n %d", sizes, n)
		}
	}
}

func TestAllocateGivesSmallCategoryOne(t *testing.T) {
	groups := groupByCategory(poolOf(95, 5))
	allocate(groups, 100, 10)
	assert.Equal(t, 9, groups[0].target)
	assert.Equal(t, 1, groups[1].target)
}

func TestBalancedReturnsDistinctQuestions(t *testing.T) {
	pool := poolOf(5, 9, 2)
	got := balanced(pool, 12, rand.New(rand.NewSource(1)))
	assert.Len(t, got, 12)

	seen := map[string]bool{}
	for _, q := range got {
		assert.False(t, seen[q.ID])
		seen[q.ID] = true
	}
	assert.Len(t, balanced(pool, 40, rand.New(rand.NewSource(1))), len(pool))
	assert.Empty(t, balanced(pool, 0, rand.New(rand.NewSource(1))))
}
