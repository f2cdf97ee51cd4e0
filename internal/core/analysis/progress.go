package analysis

import (
	"sync"
	"time"
)

// StepStatus は進捗イベントの状態です
type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusInProgress StepStatus = "in_progress"
	StatusCompleted  StepStatus = "completed"
	StatusFailed     StepStatus = "failed"
)

// 解析ステップ番号
const (
	StepRepositoryAccess = iota + 1
	StepFileTreeFiltering
	StepStaticAnalysis
	StepProjectPurpose
	StepSecurityScan
	StepFileUpload
	StepRoadmapGeneration
	StepComplete
)

// TotalSteps は解析ステップの総数です
const TotalSteps = StepComplete

var stepNames = map[int]string{
	StepRepositoryAccess:  "Repository Access",
	StepFileTreeFiltering: "File Tree Filtering",
	StepStaticAnalysis:    "Static Analysis",
	StepProjectPurpose:    "Project Purpose",
	StepSecurityScan:      "Security Scan",
	StepFileUpload:        "File Upload",
	StepRoadmapGeneration: "Roadmap Generation",
	StepComplete:          "Complete",
}

// StepName はステップ番号の表示名を返します
func StepName(step int) string {
	return stepNames[step]
}

// Event は解析の進捗イベントです
type Event struct {
	RunID     string         `json:"runId"`
	Step      int            `json:"step"`
	StepName  string         `json:"stepName"`
	Status    StepStatus     `json:"status"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ProgressFunc は進捗イベントを受け取るコールバックです
type ProgressFunc func(Event)

// emitter は1回の解析の進捗イベントを順序通りに送出します
// close 後のイベントは破棄されます
type emitter struct {
	mu     sync.Mutex
	runID  string
	sink   ProgressFunc
	step   int
	closed bool
	now    func() time.Time
}

func newEmitter(runID string, sink ProgressFunc, now func() time.Time) *emitter {
	return &emitter{runID: runID, sink: sink, step: StepRepositoryAccess, now: now}
}

func (e *emitter) emit(step int, status StepStatus, message string, details map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || step < e.step {
		return
	}
	e.step = step
	e.send(status, message, details)
}

// fail は現在のステップの失敗イベントを送出し、以降のイベントを止めます
func (e *emitter) fail(message string, details map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.send(StatusFailed, message, details)
	e.closed = true
}

func (e *emitter) send(status StepStatus, message string, details map[string]any) {
	if e.sink == nil {
		return
	}
	e.sink(Event{
		RunID:     e.runID,
		Step:      e.step,
		StepName:  StepName(e.step),
		Status:    status,
		Message:   message,
		Details:   details,
		Timestamp: e.now(),
	})
}
