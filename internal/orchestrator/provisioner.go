package orchestrator

import (
	"context"
)

// WorkerStatus is the provisioning backend's view of one worker.
type WorkerStatus string

const (
	StatusStarting  WorkerStatus = "STARTING"
	StatusRunning   WorkerStatus = "RUNNING"
	StatusCompleted WorkerStatus = "COMPLETED"
	StatusFailed    WorkerStatus = "FAILED"
	StatusStopped   WorkerStatus = "STOPPED"
	StatusError     WorkerStatus = "ERROR"
)

// Terminal reports whether a status will never change on its own again.
func (s WorkerStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusStopped, StatusError:
		return true
	}
	return false
}

// Provisioner is the external VM lifecycle collaborator. The orchestration
// layer only ever talks to workers through it, so tests substitute a fake and
// the gcloud implementation stays thin glue.
type Provisioner interface {
	// Create provisions a worker VM that runs the extraction pipeline for
	// the assignment's time sub-range against its endpoint.
	Create(ctx context.Context, assignment WorkerAssignment) error
	// Status probes a worker's extraction state.
	Status(ctx context.Context, name string) (WorkerStatus, error)
	// Download copies the worker's output directory into destDir.
	Download(ctx context.Context, name string, destDir string) error
	// Delete tears the worker down.
	Delete(ctx context.Context, name string) error
	// List enumerates currently provisioned worker names.
	List(ctx context.Context) ([]string, error)
}
