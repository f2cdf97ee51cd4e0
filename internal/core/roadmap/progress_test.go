package roadmap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressComplete(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewProgress("u1", "acme-api", start)

	crossed := p.Complete("t1", 4, DefaultMilestones, start.Add(time.Minute))
	assert.Equal(t, []int{25}, crossed)
	assert.Equal(t, 25, p.Percentage)

	crossed = p.Complete("t1", 4, DefaultMilestones, start.Add(2*time.Minute))
	assert.Empty(t, crossed)
	assert.Equal(t, []string{"t1"}, p.CompletedTasks)

	crossed = p.Complete("t3", 4, DefaultMilestones, start.Add(3*time.Minute))
	assert.Equal(t, []int{50}, crossed)

	crossed = p.Complete("t2", 4, DefaultMilestones, start.Add(4*time.Minute))
	assert.Equal(t, []int{75}, crossed)
	assert.Nil(t, p.CompletedAt)

	done := start.Add(5 * time.Minute)
	crossed = p.Complete("t4", 4, DefaultMilestones, done)
	assert.Equal(t, []int{100}, crossed)
	require.NotNil(t, p.CompletedAt)
	assert.Equal(t, done, *p.CompletedAt)
	assert.Equal(t, []string{"t1", "t2", "t3", "t4"}, p.CompletedTasks)
	assert.Equal(t, start, p.StartedAt)

	p.Uncomplete("t4", 4, done.Add(time.Minute))
	assert.Equal(t, 75, p.Percentage)
	assert.Nil(t, p.CompletedAt)
}

func TestCrossedMilestones(t *testing.T) {
	assert.Equal(t, []int{25, 50}, CrossedMilestones(0, 60, DefaultMilestones))
	assert.Empty(t, CrossedMilestones(50, 50, DefaultMilestones))
	assert.Equal(t, []int{100}, CrossedMilestones(99, 100, DefaultMilestones))
	assert.Equal(t, []int{33}, CrossedMilestones(0, 33, []int{33, 66}))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, Percentage(0, 0))
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 100, Percentage(5, 3))
}
