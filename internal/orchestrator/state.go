package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Worker lifecycle states tracked in the run-state record.
const (
	WorkerCreated        = "CREATED"
	WorkerCreateFailed   = "CREATE_FAILED"
	WorkerCompleted      = "COMPLETED"
	WorkerDownloaded     = "DOWNLOADED"
	WorkerDownloadFailed = "DOWNLOAD_FAILED"
	WorkerFailed         = "FAILED"
)

type WorkerRecord struct {
	Assignment WorkerAssignment `json:"assignment"`
	State      string           `json:"state"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// RunState is the explicit record of one distributed run, owned by the
// orchestration layer and snapshotted to disk so a crashed or interrupted
// orchestrator can still enumerate its workers.
type RunState struct {
	DeployedAt  time.Time                `json:"deployed_at"`
	GlobalStart time.Time                `json:"global_start"`
	GlobalEnd   time.Time                `json:"global_end"`
	Workers     map[string]*WorkerRecord `json:"workers"`
}

func NewRunState(globalStart, globalEnd time.Time) *RunState {
	return &RunState{
		DeployedAt:  time.Now().UTC(),
		GlobalStart: globalStart,
		GlobalEnd:   globalEnd,
		Workers:     make(map[string]*WorkerRecord),
	}
}

func (s *RunState) SetWorkerState(name string, assignment WorkerAssignment, state string) {
	s.Workers[name] = &WorkerRecord{
		Assignment: assignment,
		State:      state,
		UpdatedAt:  time.Now().UTC(),
	}
}

// ActiveWorkers returns the workers whose output has not been collected and
// that have not terminally failed.
func (s *RunState) ActiveWorkers() []string {
	var active []string
	for name, record := range s.Workers {
		switch record.State {
		case WorkerCreated, WorkerCompleted:
			active = append(active, name)
		}
	}
	return active
}

// LoadRunState reads a snapshot; a missing file means no deployment exists.
func LoadRunState(path string) (*RunState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoDeployment
		}
		return nil, err
	}
	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("corrupt run state %s: %v", path, err)
	}
	return &state, nil
}

// Save writes the snapshot atomically.
func (s *RunState) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func RemoveRunState(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
