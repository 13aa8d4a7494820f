package locator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ethsweep/ethsweep/internal/metrics"
	"github.com/ethsweep/ethsweep/internal/rpc"
)

var (
	// ErrSourceUnavailable means the head block query failed, so no search
	// window can be established.
	ErrSourceUnavailable = errors.New("block data source unavailable")

	// ErrNotFound means no block has a timestamp at or before the target,
	// which only happens when the target predates genesis.
	ErrNotFound = errors.New("no block at or before target timestamp")
)

// Locator maps timestamps to block numbers with a binary search over the
// chain. Probes fetch headers only; an optional delay between probes keeps
// the upstream request quota happy.
type Locator struct {
	rpc        rpc.IRPCClient
	probeDelay time.Duration
}

func New(rpcClient rpc.IRPCClient, probeDelay time.Duration) *Locator {
	return &Locator{
		rpc:        rpcClient,
		probeDelay: probeDelay,
	}
}

// FindBlockAtOrBefore returns the highest block number whose timestamp does
// not exceed target.
func (l *Locator) FindBlockAtOrBefore(ctx context.Context, target uint64) (*big.Int, error) {
	latestBlock, err := l.rpc.GetLatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	latest, _ := latestBlock.Float64()
	metrics.ChainHead.Set(latest)

	low, high := int64(1), latestBlock.Int64()
	var closestBlock *big.Int

	// closestBlock always holds the highest-numbered block found so far whose
	// timestamp does not exceed the target.
	for low <= high {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mid := (low + high) / 2

		metrics.LocatorProbes.Inc()
		block, err := l.rpc.GetBlock(ctx, big.NewInt(mid), false)
		if err != nil {
			log.Warn().Err(err).Int64("block", mid).Msg("Probe failed, narrowing search window")
			high = mid - 1
			if err := l.sleep(ctx); err != nil {
				return nil, err
			}
			continue
		}

		if block.Timestamp <= target {
			closestBlock = big.NewInt(mid)
			low = mid + 1
		} else {
			high = mid - 1
		}

		if err := l.sleep(ctx); err != nil {
			return nil, err
		}
	}

	if closestBlock == nil {
		return nil, ErrNotFound
	}
	return closestBlock, nil
}

func (l *Locator) sleep(ctx context.Context) error {
	if l.probeDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(l.probeDelay):
		return nil
	}
}
