package netrecord

import (
	"fmt"
	"math"
)

// Task is one main-thread work interval extracted from a performance trace.
// Times are seconds since navigation start.
type Task struct {
	ID        string  `json:"id"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
	Name      string  `json:"name"`
	// URL is the script the task evaluated, when the trace attributes one.
	URL string `json:"url,omitempty"`
}

// EndTime returns the original end of the task.
func (t *Task) EndTime() float64 {
	return t.StartTime + t.Duration
}

// Validate rejects tasks that cannot be placed on a timeline.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task %q: missing id", t.Name)
	}
	if math.IsNaN(t.StartTime) || math.IsInf(t.StartTime, 0) || t.StartTime < 0 {
		return fmt.Errorf("task %s: invalid start time %v", t.ID, t.StartTime)
	}
	if math.IsNaN(t.Duration) || math.IsInf(t.Duration, 0) || t.Duration < 0 {
		return fmt.Errorf("task %s: invalid duration %v", t.ID, t.Duration)
	}
	return nil
}
