package orchestrator

import (
	"fmt"
	"time"
)

// WorkerAssignment is one worker's slice of the global run: a contiguous time
// sub-range and the upstream endpoint it should use. The union of all
// assignments covers [global start, global end) exactly, without gaps or
// overlaps.
type WorkerAssignment struct {
	WorkerID int       `json:"worker_id"`
	Name     string    `json:"name"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Endpoint string    `json:"endpoint"`
}

// Split divides [start, end) into workerCount equal-duration sub-ranges by
// wall-clock time; block counts are unknown in advance. The last sub-range is
// forced to end exactly at the global end to absorb rounding remainder.
// Endpoints are assigned round-robin to spread upstream capacity.
func Split(start, end time.Time, workerCount int, endpoints []string) ([]WorkerAssignment, error) {
	if workerCount <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", workerCount)
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("at least one data source endpoint is required")
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("range start %s must be before end %s", start, end)
	}

	durationPerWorker := end.Sub(start) / time.Duration(workerCount)
	assignments := make([]WorkerAssignment, 0, workerCount)
	for i := 0; i < workerCount; i++ {
		workerStart := start.Add(durationPerWorker * time.Duration(i))
		workerEnd := start.Add(durationPerWorker * time.Duration(i+1))
		if i == workerCount-1 {
			workerEnd = end
		}
		assignments = append(assignments, WorkerAssignment{
			WorkerID: i + 1,
			Name:     fmt.Sprintf("ethsweep-%03d", i+1),
			Start:    workerStart,
			End:      workerEnd,
			Endpoint: endpoints[i%len(endpoints)],
		})
	}
	return assignments, nil
}
