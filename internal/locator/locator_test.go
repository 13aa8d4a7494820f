package locator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethsweep/ethsweep/internal/common"
)

// fakeChain serves a synthetic chain where block n has timestamp
// genesis + n*blockTime, which keeps the expected answers easy to derive.
type fakeChain struct {
	genesis      uint64
	blockTime    uint64
	head         int64
	headErr      error
	failingBlock int64
	probes       int
}

func (c *fakeChain) GetLatestBlockNumber(ctx context.Context) (*big.Int, error) {
	if c.headErr != nil {
		return nil, c.headErr
	}
	return big.NewInt(c.head), nil
}

func (c *fakeChain) GetBlock(ctx context.Context, blockNumber *big.Int, includeTransactions bool) (*common.Block, error) {
	c.probes++
	n := blockNumber.Int64()
	if c.failingBlock != 0 && n >= c.failingBlock {
		return nil, fmt.Errorf("block %d unavailable", n)
	}
	return &common.Block{
		Number:    blockNumber,
		Timestamp: c.genesis + uint64(n)*c.blockTime,
	}, nil
}

func (c *fakeChain) GetURL() string { return "fake://chain" }

func (c *fakeChain) Close() {}

func TestFindBlockAtOrBefore(t *testing.T) {
	chain := &fakeChain{genesis: 1_600_000_000, blockTime: 13, head: 10_000}
	loc := New(chain, 0)

	// block 500 is stamped genesis + 6500; a target between block 500 and 501
	// must resolve to 500
	target := chain.genesis + 500*chain.blockTime + 5
	block, err := loc.FindBlockAtOrBefore(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, int64(500), block.Int64())

	// exact timestamp match resolves to that block
	block, err = loc.FindBlockAtOrBefore(context.Background(), chain.genesis+777*chain.blockTime)
	require.NoError(t, err)
	assert.Equal(t, int64(777), block.Int64())
}

func TestFindBlockAtOrBeforeBoundaryProperty(t *testing.T) {
	chain := &fakeChain{genesis: 1_600_000_000, blockTime: 13, head: 5_000}
	loc := New(chain, 0)

	for _, target := range []uint64{
		chain.genesis + 13,
		chain.genesis + 1234*13 + 7,
		chain.genesis + 5_000*13,
		chain.genesis + 5_000*13 + 100_000,
	} {
		block, err := loc.FindBlockAtOrBefore(context.Background(), target)
		require.NoError(t, err)

		n := block.Int64()
		found, err := chain.GetBlock(context.Background(), block, false)
		require.NoError(t, err)
		assert.LessOrEqual(t, found.Timestamp, target)
		if n < chain.head {
			next, err := chain.GetBlock(context.Background(), big.NewInt(n+1), false)
			require.NoError(t, err)
			assert.Greater(t, next.Timestamp, target)
		}
	}
}

func TestFindBlockAtOrBeforeUsesLogarithmicProbes(t *testing.T) {
	chain := &fakeChain{genesis: 1_600_000_000, blockTime: 13, head: 1_000_000}
	loc := New(chain, 0)

	_, err := loc.FindBlockAtOrBefore(context.Background(), chain.genesis+424_242*13)
	require.NoError(t, err)
	assert.LessOrEqual(t, chain.probes, 25)
}

func TestFindBlockAtOrBeforePreGenesisTarget(t *testing.T) {
	chain := &fakeChain{genesis: 1_600_000_000, blockTime: 13, head: 1_000}
	loc := New(chain, 0)

	_, err := loc.FindBlockAtOrBefore(context.Background(), chain.genesis-1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindBlockAtOrBeforeHeadQueryFails(t *testing.T) {
	chain := &fakeChain{headErr: errors.New("connection refused")}
	loc := New(chain, 0)

	_, err := loc.FindBlockAtOrBefore(context.Background(), 1_600_000_000)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestFindBlockAtOrBeforeSurvivesProbeFailures(t *testing.T) {
	// blocks near the head are unavailable, the search must still resolve
	// targets below the failing region
	chain := &fakeChain{genesis: 1_600_000_000, blockTime: 13, head: 10_000, failingBlock: 9_000}
	loc := New(chain, 0)

	block, err := loc.FindBlockAtOrBefore(context.Background(), chain.genesis+4_000*13)
	require.NoError(t, err)
	assert.Equal(t, int64(4_000), block.Int64())
}

func TestFindBlockAtOrBeforeCancelledContext(t *testing.T) {
	chain := &fakeChain{genesis: 1_600_000_000, blockTime: 13, head: 10_000}
	loc := New(chain, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loc.FindBlockAtOrBefore(ctx, chain.genesis+500*13)
	assert.ErrorIs(t, err, context.Canceled)
}
