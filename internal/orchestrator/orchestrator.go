package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/rs/zerolog"

	config "github.com/ethsweep/ethsweep/configs"
	"github.com/ethsweep/ethsweep/internal/aggregator"
	"github.com/ethsweep/ethsweep/internal/common"
	"github.com/ethsweep/ethsweep/internal/extractor"
	customLog "github.com/ethsweep/ethsweep/internal/log"
	"github.com/ethsweep/ethsweep/internal/storage"
)

const (
	DEFAULT_DATA_DIR                  = "collected_data"
	DEFAULT_POLL_INTERVAL_SECONDS     = 300
	DEFAULT_MAX_POLL_INTERVAL_SECONDS = 1800
	DEFAULT_CREATE_CONCURRENCY        = 10

	RunStateFile      = "run_state.json"
	AggregatedDirName = "aggregated"
	MergedSummaryFile = "summaries.csv"
)

var (
	// ErrNoDeployment means no run is currently tracked.
	ErrNoDeployment = errors.New("no active deployment")
	// ErrExistingDeployment means a run is already active; a second deploy is
	// rejected rather than silently creating concurrent duplicate work.
	ErrExistingDeployment = errors.New("existing deployment is still active")
)

// Orchestrator owns the distributed run: it splits the global range into
// worker assignments, provisions workers, polls their status and finally
// collects and merges their outputs. All state lives in an explicit RunState
// record snapshotted under the data directory.
type Orchestrator struct {
	provisioner       Provisioner
	globalStart       time.Time
	globalEnd         time.Time
	workerCount       int
	endpoints         []string
	dataDir           string
	pollInterval      time.Duration
	maxPollInterval   time.Duration
	createConcurrency int
	logger            zerolog.Logger
}

// CollectReport summarizes one finalize pass. A worker that never reached a
// completed state (Failed) is reported distinctly from one that completed
// but whose output could not be fetched (DownloadFailed). Truncation holds
// the completion-check verdict on the merged output: empty means the
// aggregate reaches the requested range end.
type CollectReport struct {
	Downloaded     []string
	DownloadFailed []string
	Failed         []string
	MergedRows     int
	OutputPath     string
	Truncation     string
}

func NewOrchestrator(provisioner Provisioner) (*Orchestrator, error) {
	cfg := config.Cfg

	globalStart, err := config.ParseRangeTime(cfg.Range.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid range.start: %v", err)
	}
	globalEnd, err := config.ParseRangeTime(cfg.Range.End)
	if err != nil {
		return nil, fmt.Errorf("invalid range.end: %v", err)
	}

	dataDir := cfg.Orchestrator.DataDir
	if dataDir == "" {
		dataDir = DEFAULT_DATA_DIR
	}
	pollInterval := cfg.Orchestrator.PollIntervalSeconds
	if pollInterval == 0 {
		pollInterval = DEFAULT_POLL_INTERVAL_SECONDS
	}
	maxPollInterval := cfg.Orchestrator.MaxPollIntervalSeconds
	if maxPollInterval == 0 {
		maxPollInterval = DEFAULT_MAX_POLL_INTERVAL_SECONDS
	}
	createConcurrency := cfg.Orchestrator.CreateConcurrency
	if createConcurrency == 0 {
		createConcurrency = DEFAULT_CREATE_CONCURRENCY
	}

	return &Orchestrator{
		provisioner:       provisioner,
		globalStart:       globalStart,
		globalEnd:         globalEnd,
		workerCount:       cfg.Orchestrator.Workers,
		endpoints:         cfg.Orchestrator.Endpoints,
		dataDir:           dataDir,
		pollInterval:      time.Duration(pollInterval) * time.Second,
		maxPollInterval:   time.Duration(maxPollInterval) * time.Second,
		createConcurrency: createConcurrency,
		logger:            customLog.NewLogger("orchestrator"),
	}, nil
}

func (o *Orchestrator) statePath() string {
	return filepath.Join(o.dataDir, RunStateFile)
}

// Deploy partitions the global range and provisions one worker per
// sub-range. Worker creation fans out through a bounded pool so the
// provisioning backend is not overwhelmed.
func (o *Orchestrator) Deploy(ctx context.Context) (*RunState, error) {
	if existing, err := LoadRunState(o.statePath()); err == nil {
		if len(existing.ActiveWorkers()) > 0 {
			return existing, ErrExistingDeployment
		}
	} else if !errors.Is(err, ErrNoDeployment) {
		return nil, err
	}

	assignments, err := Split(o.globalStart, o.globalEnd, o.workerCount, o.endpoints)
	if err != nil {
		return nil, err
	}

	// A resumed deploy must not duplicate concurrent work: anything the
	// backend already runs is adopted, not re-created.
	alreadyRunning := make(map[string]bool)
	if names, err := o.provisioner.List(ctx); err != nil {
		o.logger.Warn().Err(err).Msg("Could not list existing workers, assuming none")
	} else {
		for _, name := range names {
			alreadyRunning[name] = true
		}
	}

	if err := os.MkdirAll(o.dataDir, 0o755); err != nil {
		return nil, err
	}

	state := NewRunState(o.globalStart, o.globalEnd)
	var mu sync.Mutex

	pool := pond.NewPool(o.createConcurrency)
	for _, assignment := range assignments {
		assignment := assignment
		if alreadyRunning[assignment.Name] {
			o.logger.Info().Str("worker", assignment.Name).Msg("Worker already running, adopting it")
			mu.Lock()
			state.SetWorkerState(assignment.Name, assignment, WorkerCreated)
			mu.Unlock()
			continue
		}
		pool.Submit(func() {
			err := o.provisioner.Create(ctx, assignment)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				o.logger.Error().Err(err).Str("worker", assignment.Name).Msg("Worker creation failed")
				state.SetWorkerState(assignment.Name, assignment, WorkerCreateFailed)
				return
			}
			o.logger.Info().Str("worker", assignment.Name).Msgf("Created worker for %s to %s",
				assignment.Start.Format(config.TimeLayout), assignment.End.Format(config.TimeLayout))
			state.SetWorkerState(assignment.Name, assignment, WorkerCreated)
		})
	}
	pool.StopAndWait()

	if err := state.Save(o.statePath()); err != nil {
		return nil, err
	}
	if len(state.ActiveWorkers()) == 0 {
		return state, fmt.Errorf("no workers were created successfully")
	}
	return state, nil
}

// Status re-derives each worker's state by querying the provisioning backend.
func (o *Orchestrator) Status(ctx context.Context) (*RunState, map[string]WorkerStatus, error) {
	state, err := LoadRunState(o.statePath())
	if err != nil {
		return nil, nil, err
	}

	statuses := make(map[string]WorkerStatus, len(state.Workers))
	for _, name := range state.ActiveWorkers() {
		status, err := o.provisioner.Status(ctx, name)
		if err != nil {
			o.logger.Warn().Err(err).Str("worker", name).Msg("Status probe failed")
			status = StatusError
		}
		statuses[name] = status
	}
	return state, statuses, nil
}

// Collect polls workers until every one resolves, downloads and tears down
// the completed ones, then merges all per-worker outputs. Idle polling backs
// off up to the configured maximum instead of busy-looping.
func (o *Orchestrator) Collect(ctx context.Context) (*CollectReport, error) {
	state, err := LoadRunState(o.statePath())
	if err != nil {
		return nil, err
	}

	report := &CollectReport{}
	pending := make(map[string]bool)
	for _, name := range state.ActiveWorkers() {
		pending[name] = true
	}

	interval := o.pollInterval
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			// leave the snapshot in place so workers stay enumerable
			return report, err
		}

		progressed := false
		for name := range pending {
			record := state.Workers[name]
			status, err := o.provisioner.Status(ctx, name)
			if err != nil {
				o.logger.Warn().Err(err).Str("worker", name).Msg("Status probe failed, will retry")
				continue
			}

			switch {
			case status == StatusCompleted:
				o.resolveCompleted(ctx, state, name, record, report)
				delete(pending, name)
				progressed = true
			case status.Terminal():
				o.logger.Error().Str("worker", name).Str("status", string(status)).Msg("Worker failed without completing")
				state.SetWorkerState(name, record.Assignment, WorkerFailed)
				report.Failed = append(report.Failed, name)
				o.teardown(ctx, name)
				delete(pending, name)
				progressed = true
			}
		}

		if err := state.Save(o.statePath()); err != nil {
			return report, err
		}
		if len(pending) == 0 {
			break
		}

		if progressed {
			interval = o.pollInterval
		} else if interval < o.maxPollInterval {
			interval *= 2
			if interval > o.maxPollInterval {
				interval = o.maxPollInterval
			}
		}
		o.logger.Info().Msgf("%d workers still running, next check in %s", len(pending), interval)
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		case <-time.After(interval):
		}
	}

	if err := o.mergeOutputs(state, report); err != nil {
		return report, err
	}

	if err := RemoveRunState(o.statePath()); err != nil {
		return report, err
	}
	return report, nil
}

func (o *Orchestrator) resolveCompleted(ctx context.Context, state *RunState, name string, record *WorkerRecord, report *CollectReport) {
	destDir := filepath.Join(o.dataDir, name)
	if err := o.provisioner.Download(ctx, name, destDir); err != nil {
		o.logger.Error().Err(err).Str("worker", name).Msg("Download failed")
		state.SetWorkerState(name, record.Assignment, WorkerDownloadFailed)
		report.DownloadFailed = append(report.DownloadFailed, name)
	} else {
		o.logger.Info().Str("worker", name).Msg("Downloaded worker output")
		state.SetWorkerState(name, record.Assignment, WorkerDownloaded)
		report.Downloaded = append(report.Downloaded, name)
	}
	o.teardown(ctx, name)
}

func (o *Orchestrator) teardown(ctx context.Context, name string) {
	if err := o.provisioner.Delete(ctx, name); err != nil {
		o.logger.Error().Err(err).Str("worker", name).Msg("Worker deletion failed")
	}
}

// mergeOutputs repairs every collected CSV, concatenates the whale and
// validator streams across workers and writes their key-aligned join. The
// merge reads finalized files only and is idempotent.
func (o *Orchestrator) mergeOutputs(state *RunState, report *CollectReport) error {
	var whaleRows, validatorRows []common.IntervalSummary

	for name, record := range state.Workers {
		if record.State != WorkerDownloaded {
			continue
		}
		workerDir := filepath.Join(o.dataDir, name)

		whalePath := filepath.Join(workerDir, extractor.WhaleSummaryFile)
		validatorPath := filepath.Join(workerDir, extractor.ValidatorSummaryFile)
		for _, path := range []string{whalePath, validatorPath} {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if repaired, err := storage.RepairFile(path); err != nil {
				o.logger.Warn().Err(err).Str("file", path).Msg("CSV repair failed")
			} else if repaired > 0 {
				o.logger.Info().Str("file", path).Msgf("Repaired %d malformed rows", repaired)
			}
		}

		if rows, err := storage.ReadSummaryFile(whalePath, storage.StreamWhale); err != nil {
			o.logger.Warn().Err(err).Str("worker", name).Msg("Could not read whale summaries")
		} else {
			whaleRows = append(whaleRows, rows...)
		}
		if rows, err := storage.ReadSummaryFile(validatorPath, storage.StreamValidator); err != nil {
			o.logger.Warn().Err(err).Str("worker", name).Msg("Could not read validator summaries")
		} else {
			validatorRows = append(validatorRows, rows...)
		}
	}

	merged := aggregator.Merge(whaleRows, validatorRows)
	outputPath := filepath.Join(o.dataDir, AggregatedDirName, MergedSummaryFile)
	if err := storage.WriteMerged(outputPath, merged); err != nil {
		return fmt.Errorf("failed to write merged summaries: %v", err)
	}
	report.MergedRows = len(merged)
	report.OutputPath = outputPath

	if err := aggregator.CheckCompletion(merged, state.GlobalEnd); err != nil {
		o.logger.Error().Err(err).Msg("Aggregated output does not reach the requested range end")
		report.Truncation = err.Error()
	}
	return nil
}
