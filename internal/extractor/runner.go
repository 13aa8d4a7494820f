package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	config "github.com/ethsweep/ethsweep/configs"
	"github.com/ethsweep/ethsweep/internal/aggregator"
	"github.com/ethsweep/ethsweep/internal/common"
	"github.com/ethsweep/ethsweep/internal/locator"
	customLog "github.com/ethsweep/ethsweep/internal/log"
	"github.com/ethsweep/ethsweep/internal/metrics"
	"github.com/ethsweep/ethsweep/internal/planner"
	"github.com/ethsweep/ethsweep/internal/rpc"
	"github.com/ethsweep/ethsweep/internal/storage"
)

const (
	DEFAULT_OBSERVATION_BUDGET = 100
	DEFAULT_FETCH_DELAY_MS     = 50
	DEFAULT_OUTPUT_DIRECTORY   = "data"

	WhaleSummaryFile     = "whale_summaries.csv"
	ValidatorSummaryFile = "validator_summaries.csv"
)

// Runner drives one worker's full pipeline: plan intervals, extract and
// classify each one sequentially, append its summary immediately, then check
// the run reached the requested end.
type Runner struct {
	extractor   *Extractor
	globalStart time.Time
	globalEnd   time.Time
	spanKind    planner.SpanKind
	spanLength  float64
	aligned     bool
	outputDir   string
	status      *StatusFile
	logger      zerolog.Logger
}

// NewRunner builds the pipeline from the global config. Configuration errors
// surface here, before any network activity.
func NewRunner(rpcClient rpc.IRPCClient) (*Runner, error) {
	cfg := config.Cfg

	globalStart, err := config.ParseRangeTime(cfg.Range.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid range.start: %v", err)
	}
	globalEnd, err := config.ParseRangeTime(cfg.Range.End)
	if err != nil {
		return nil, fmt.Errorf("invalid range.end: %v", err)
	}

	spanKind, err := planner.ParseSpanKind(cfg.Interval.SpanKind)
	if err != nil {
		return nil, err
	}

	policy, err := ParseVisitPolicy(cfg.Sampling.Policy)
	if err != nil {
		return nil, err
	}

	observationBudget := cfg.Sampling.ObservationBudget
	if observationBudget == 0 {
		observationBudget = DEFAULT_OBSERVATION_BUDGET
	}
	fetchDelayMs := cfg.RPC.FetchDelayMs
	if fetchDelayMs == 0 {
		fetchDelayMs = DEFAULT_FETCH_DELAY_MS
	}
	fetchDelay := time.Duration(fetchDelayMs) * time.Millisecond

	outputDir := cfg.Output.Directory
	if outputDir == "" {
		outputDir = DEFAULT_OUTPUT_DIRECTORY
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %v", outputDir, err)
	}

	loc := locator.New(rpcClient, fetchDelay)

	return &Runner{
		extractor:   New(rpcClient, loc, policy, observationBudget, fetchDelay),
		globalStart: globalStart,
		globalEnd:   globalEnd,
		spanKind:    spanKind,
		spanLength:  cfg.Interval.SpanLength,
		aligned:     cfg.Interval.Aligned,
		outputDir:   outputDir,
		status:      NewStatusFile(outputDir),
		logger:      customLog.NewLogger("runner"),
	}, nil
}

func (r *Runner) Run(ctx context.Context) error {
	r.status.Update("STARTED", "")
	r.logger.Info().
		Str("start", r.globalStart.Format(config.TimeLayout)).
		Str("end", r.globalEnd.Format(config.TimeLayout)).
		Msg("Starting extraction")

	intervals, err := planner.Plan(r.globalStart, r.globalEnd, r.spanKind, r.spanLength, r.aligned)
	if err != nil {
		r.status.Update("FAILED", err.Error())
		return err
	}
	if len(intervals) == 0 {
		r.logger.Info().Msg("Time range produced no intervals, nothing to do")
		r.status.Update("COMPLETED", "0 intervals")
		return nil
	}
	r.logger.Info().Msgf("Generated %d time intervals", len(intervals))

	whaleWriter, err := storage.NewSummaryWriter(filepath.Join(r.outputDir, WhaleSummaryFile), storage.StreamWhale)
	if err != nil {
		r.status.Update("FAILED", err.Error())
		return err
	}
	defer whaleWriter.Close()
	validatorWriter, err := storage.NewSummaryWriter(filepath.Join(r.outputDir, ValidatorSummaryFile), storage.StreamValidator)
	if err != nil {
		r.status.Update("FAILED", err.Error())
		return err
	}
	defer validatorWriter.Close()

	succeeded, failed := 0, 0
	var lastSummarized *common.IntervalSummary

	for i, interval := range intervals {
		if err := ctx.Err(); err != nil {
			r.status.Update("FAILED", "interrupted")
			return err
		}
		r.status.Update("PROCESSING", fmt.Sprintf("interval %d/%d", i+1, len(intervals)))

		transactions, err := r.extractor.Extract(ctx, interval)
		if err != nil {
			// one bad interval must not abort the run
			r.logger.Error().Err(err).Msgf("Interval %d/%d yielded no summary", i+1, len(intervals))
			metrics.IntervalsFailed.Inc()
			failed++
			continue
		}

		summary := aggregator.Summarize(transactions, interval)
		if err := whaleWriter.Append(summary); err != nil {
			r.status.Update("FAILED", err.Error())
			return fmt.Errorf("failed to append whale summary: %v", err)
		}
		if err := validatorWriter.Append(summary); err != nil {
			r.status.Update("FAILED", err.Error())
			return fmt.Errorf("failed to append validator summary: %v", err)
		}

		metrics.IntervalsCompleted.Inc()
		metrics.LastSummarizedIntervalEnd.Set(float64(interval.End.Unix()))
		lastSummarized = &summary
		succeeded++
		r.logger.Info().Msgf("Completed interval %d/%d", i+1, len(intervals))
	}

	r.logger.Info().
		Int("succeeded", succeeded).
		Int("failed", failed).
		Msg("Extraction finished")

	expectedEnd := intervals[len(intervals)-1].End
	var recorded []common.IntervalSummary
	if lastSummarized != nil {
		recorded = []common.IntervalSummary{*lastSummarized}
	}
	if err := aggregator.CheckCompletion(recorded, expectedEnd); err != nil {
		r.status.Update("FAILED", err.Error())
		return err
	}

	r.status.Update("COMPLETED", fmt.Sprintf("%d intervals summarized, %d failed", succeeded, failed))
	return nil
}
