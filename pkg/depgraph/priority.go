package depgraph

import (
	"math"
	"sort"

	"github.com/user/loadsim/pkg/netrecord"
)

// DefaultPriorityDecay is the time constant, in seconds, of the blend that
// favours a record's most recent priority steps.
const DefaultPriorityDecay = 0.25

// BlendPriority folds the record's declared priority and its later escalation
// steps into one weight in [0,1]. Each step counts for the time it was in
// effect during the pending window, discounted exponentially by how long
// before the end of the window it applied.
func BlendPriority(r *netrecord.Record, decay float64) float64 {
	if len(r.PriorityChanges) == 0 {
		return r.Priority.Normalized()
	}

	steps := make([]netrecord.PriorityChange, 0, len(r.PriorityChanges)+1)
	steps = append(steps, netrecord.PriorityChange{Time: r.StartTime, Priority: r.Priority})
	for _, c := range r.PriorityChanges {
		if math.IsNaN(c.Time) || c.Time < r.StartTime {
			continue
		}
		steps = append(steps, c)
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Time < steps[j].Time })

	end := steps[len(steps)-1].Time
	if r.Finished && r.EndTime > end {
		end = r.EndTime
	}
	if end <= r.StartTime || decay <= 0 {
		return steps[len(steps)-1].Priority.Normalized()
	}

	var weighted, total float64
	for i, step := range steps {
		segEnd := end
		if i+1 < len(steps) {
			segEnd = steps[i+1].Time
		}
		if segEnd <= step.Time {
			continue
		}
		// Integral of exp(-(end-t)/decay) over [step.Time, segEnd].
		w := decay * (math.Exp(-(end-segEnd)/decay) - math.Exp(-(end-step.Time)/decay))
		weighted += w * step.Priority.Normalized()
		total += w
	}
	if total == 0 {
		return steps[len(steps)-1].Priority.Normalized()
	}
	return clamp01(weighted / total)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
