package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Locator metrics
var (
	LocatorProbes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "locator_probes_total",
		Help: "The total number of header probes issued by the block locator",
	})

	ChainHead = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "locator_chain_head",
		Help: "The latest block number reported by the data source",
	})
)

// Extractor metrics
var (
	BlocksFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "extractor_blocks_fetched_total",
		Help: "The total number of full blocks fetched",
	})

	BlockFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "extractor_block_fetch_failures_total",
		Help: "The total number of block fetches that failed and were skipped",
	})

	WhaleTransactions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "extractor_whale_transactions_total",
		Help: "The total number of transactions classified as whale",
	})

	ValidatorDeposits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "extractor_validator_deposits_total",
		Help: "The total number of transactions classified as validator deposits",
	})
)

// Pipeline metrics
var (
	IntervalsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_intervals_completed_total",
		Help: "The number of intervals summarized successfully",
	})

	IntervalsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_intervals_failed_total",
		Help: "The number of intervals that yielded no summary",
	})

	LastSummarizedIntervalEnd = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_last_summarized_interval_end",
		Help: "Unix timestamp of the end of the last summarized interval",
	})
)
