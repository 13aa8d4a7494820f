package extractor

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethsweep/ethsweep/internal/common"
	"github.com/ethsweep/ethsweep/internal/locator"
)

// fakeChain serves a synthetic chain where block n has timestamp
// genesis + n*blockTime and carries one whale transfer per block.
type fakeChain struct {
	genesis       uint64
	blockTime     uint64
	head          int64
	failingBlocks map[int64]bool
	fetched       []int64
}

func (c *fakeChain) GetLatestBlockNumber(ctx context.Context) (*big.Int, error) {
	return big.NewInt(c.head), nil
}

func (c *fakeChain) GetBlock(ctx context.Context, blockNumber *big.Int, includeTransactions bool) (*common.Block, error) {
	n := blockNumber.Int64()
	if c.failingBlocks[n] {
		return nil, fmt.Errorf("block %d unavailable", n)
	}
	block := &common.Block{
		Number:    blockNumber,
		Timestamp: c.genesis + uint64(n)*c.blockTime,
	}
	if includeTransactions {
		c.fetched = append(c.fetched, n)
		block.TransactionCount = 1
		block.Transactions = []common.Transaction{
			{
				Hash:        fmt.Sprintf("0x%x", n),
				BlockNumber: blockNumber,
				Value:       new(big.Int).Mul(big.NewInt(2), common.WhaleThreshold),
			},
		}
	}
	return block, nil
}

func (c *fakeChain) GetURL() string { return "fake://chain" }

func (c *fakeChain) Close() {}

func TestParseVisitPolicy(t *testing.T) {
	policy, err := ParseVisitPolicy("exhaustive")
	assert.NoError(t, err)
	assert.Equal(t, VisitExhaustive, policy)

	policy, err = ParseVisitPolicy("sampled")
	assert.NoError(t, err)
	assert.Equal(t, VisitSampled, policy)

	// no default: the policy must be stated
	_, err = ParseVisitPolicy("")
	assert.Error(t, err)
	_, err = ParseVisitPolicy("random")
	assert.Error(t, err)
}

func TestBlockNumbersToVisitExhaustive(t *testing.T) {
	e := &Extractor{policy: VisitExhaustive, observationBudget: 100}

	blocks := e.blockNumbersToVisit(big.NewInt(100), big.NewInt(109))
	require.Len(t, blocks, 10)
	for i, block := range blocks {
		assert.Equal(t, int64(100+i), block.Int64())
	}
}

func TestBlockNumbersToVisitSampled(t *testing.T) {
	e := &Extractor{policy: VisitSampled, observationBudget: 100}

	blocks := e.blockNumbersToVisit(big.NewInt(1000), big.NewInt(1999))
	require.Len(t, blocks, 100)

	// the first visited block is the range start and spacing is even
	assert.Equal(t, int64(1000), blocks[0].Int64())
	for i, block := range blocks {
		assert.Equal(t, int64(1000+i*10), block.Int64())
	}
}

func TestBlockNumbersToVisitSmallRangeIgnoresBudget(t *testing.T) {
	e := &Extractor{policy: VisitSampled, observationBudget: 100}

	blocks := e.blockNumbersToVisit(big.NewInt(50), big.NewInt(60))
	assert.Len(t, blocks, 11)
}

func TestBlockNumbersToVisitEmptyRange(t *testing.T) {
	e := &Extractor{policy: VisitExhaustive}

	assert.Empty(t, e.blockNumbersToVisit(big.NewInt(10), big.NewInt(9)))
}

func TestExtractClassifiesTransactions(t *testing.T) {
	chain := &fakeChain{genesis: 1_600_000_000, blockTime: 10, head: 10_000}
	e := New(chain, locator.New(chain, 0), VisitExhaustive, 0, 0)

	// blocks 100..110 fall inside this interval
	interval := common.TimeInterval{
		Start: timeAt(chain, 100),
		End:   timeAt(chain, 110),
	}

	transactions, err := e.Extract(context.Background(), interval)
	require.NoError(t, err)
	require.Len(t, transactions, 11)
	for _, tx := range transactions {
		assert.True(t, tx.IsWhale)
		assert.False(t, tx.IsValidatorDeposit)
	}
}

func TestExtractSkipsFailingBlocks(t *testing.T) {
	chain := &fakeChain{
		genesis:       1_600_000_000,
		blockTime:     10,
		head:          10_000,
		failingBlocks: map[int64]bool{103: true, 107: true},
	}
	e := New(chain, locator.New(chain, 0), VisitExhaustive, 0, 0)

	interval := common.TimeInterval{
		Start: timeAt(chain, 100),
		End:   timeAt(chain, 110),
	}

	transactions, err := e.Extract(context.Background(), interval)
	require.NoError(t, err)
	assert.Len(t, transactions, 9)
}

func TestExtractSampledVisitsBudgetOnly(t *testing.T) {
	chain := &fakeChain{genesis: 1_600_000_000, blockTime: 10, head: 100_000}
	e := New(chain, locator.New(chain, 0), VisitSampled, 10, 0)

	interval := common.TimeInterval{
		Start: timeAt(chain, 1_000),
		End:   timeAt(chain, 1_999),
	}

	transactions, err := e.Extract(context.Background(), interval)
	require.NoError(t, err)
	assert.Len(t, transactions, 10)
	require.Len(t, chain.fetched, 10)
	assert.Equal(t, int64(1_000), chain.fetched[0])
}

// timeAt returns the wall-clock time of the given synthetic block.
func timeAt(chain *fakeChain, block int64) time.Time {
	return time.Unix(int64(chain.genesis)+block*int64(chain.blockTime), 0).UTC()
}
