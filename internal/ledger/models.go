package ledger

import "time"

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Mode records how the next model of an iteration was produced.
type Mode string

const (
	ModeAverage Mode = "average"
	ModeBest    Mode = "best"
)

// Run is one invocation of the controller.
type Run struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   *time.Time
	NumIters     int
	Status       Status
	ErrorMessage string
}

// Iteration is one completed training iteration.
type Iteration struct {
	RunID         string
	Iter          int
	NumJobs       int
	LearningRate  float64
	Mode          Mode
	Accepted      []int
	Best          int
	ShrinkScale   float64
	MinibatchSize string
	CompletedAt   time.Time
}
