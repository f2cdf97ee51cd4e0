package roadmap

import (
	"math"
	"sort"
	"time"
)

// DefaultMilestones は達成を通知する進捗率の既定値です
var DefaultMilestones = []int{25, 50, 75, 100}

// Progress はユーザーごとのロードマップ進捗です
type Progress struct {
	UserID         string     `json:"user_id"`
	RepositoryID   string     `json:"repository_id"`
	CompletedTasks []string   `json:"completed_tasks"`
	Percentage     int        `json:"percentage"`
	StartedAt      time.Time  `json:"started_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// NewProgress は空の進捗を作成します
func NewProgress(userID, repositoryID string, now time.Time) Progress {
	return Progress{
		UserID:         userID,
		RepositoryID:   repositoryID,
		CompletedTasks: []string{},
		StartedAt:      now,
		UpdatedAt:      now,
	}
}

// IsCompleted はタスクが完了済みかどうかを返します
func (p Progress) IsCompleted(taskID string) bool {
	for _, id := range p.CompletedTasks {
		if id == taskID {
			return true
		}
	}
	return false
}

// Complete はタスクを完了にし、新たに到達したマイルストーンを返します
func (p *Progress) Complete(taskID string, totalTasks int, milestones []int, now time.Time) []int {
	before := p.Percentage
	if !p.IsCompleted(taskID) {
		p.CompletedTasks = append(p.CompletedTasks, taskID)
		sort.Strings(p.CompletedTasks)
	}
	p.recalculate(totalTasks, now)
	return CrossedMilestones(before, p.Percentage, milestones)
}

// Uncomplete はタスクの完了を取り消します
func (p *Progress) Uncomplete(taskID string, totalTasks int, now time.Time) {
	kept := p.CompletedTasks[:0]
	for _, id := range p.CompletedTasks {
		if id != taskID {
			kept = append(kept, id)
		}
	}
	p.CompletedTasks = kept
	p.recalculate(totalTasks, now)
}

func (p *Progress) recalculate(totalTasks int, now time.Time) {
	p.Percentage = Percentage(len(p.CompletedTasks), totalTasks)
	p.UpdatedAt = now
	if p.Percentage >= 100 {
		if p.CompletedAt == nil {
			completed := now
			p.CompletedAt = &completed
		}
	} else {
		p.CompletedAt = nil
	}
}

// Percentage は完了率を0-100の整数で返します
func Percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(completed) / float64(total)))
	if pct > 100 {
		return 100
	}
	return pct
}

// CrossedMilestones は before から after への変化で新たに到達した閾値を返します
func CrossedMilestones(before, after int, milestones []int) []int {
	crossed := []int{}
	for _, m := range milestones {
		if before < m && after >= m {
			crossed = append(crossed, m)
		}
	}
	return crossed
}
