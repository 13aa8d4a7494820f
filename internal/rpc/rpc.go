package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethRpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"

	config "github.com/ethsweep/ethsweep/configs"
	"github.com/ethsweep/ethsweep/internal/common"
)

const DEFAULT_REQUEST_TIMEOUT_MS = 30000

// ErrNotFound is returned when the node answers null for a block number.
var ErrNotFound = errors.New("block not found")

type IRPCClient interface {
	GetBlock(ctx context.Context, blockNumber *big.Int, includeTransactions bool) (*common.Block, error)
	GetLatestBlockNumber(ctx context.Context) (*big.Int, error)
	GetURL() string
	Close()
}

type Client struct {
	rpcClient      *gethRpc.Client
	url            string
	requestTimeout time.Duration
}

func Initialize() (IRPCClient, error) {
	rpcUrl := config.Cfg.RPC.URL
	if rpcUrl == "" {
		return nil, fmt.Errorf("rpc.url is not set")
	}
	return InitializeWithURL(rpcUrl)
}

func InitializeWithURL(url string) (IRPCClient, error) {
	log.Debug().Str("url", url).Msg("Initializing RPC")
	rpcClient, dialErr := gethRpc.Dial(url)
	if dialErr != nil {
		return nil, dialErr
	}

	timeoutMs := config.Cfg.RPC.RequestTimeoutMs
	if timeoutMs == 0 {
		timeoutMs = DEFAULT_REQUEST_TIMEOUT_MS
	}

	return &Client{
		rpcClient:      rpcClient,
		url:            url,
		requestTimeout: time.Duration(timeoutMs) * time.Millisecond,
	}, nil
}

func (c *Client) GetURL() string {
	return c.url
}

func (c *Client) Close() {
	c.rpcClient.Close()
}

func (c *Client) GetBlock(ctx context.Context, blockNumber *big.Int, includeTransactions bool) (*common.Block, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var raw RawBlock
	err := c.rpcClient.CallContext(callCtx, &raw, "eth_getBlockByNumber", hexutil.EncodeBig(blockNumber), includeTransactions)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block %s: %v", blockNumber.String(), err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	return serializeBlock(raw), nil
}

func (c *Client) GetLatestBlockNumber(ctx context.Context) (*big.Int, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var result string
	err := c.rpcClient.CallContext(callCtx, &result, "eth_blockNumber")
	if err != nil {
		return nil, fmt.Errorf("failed to get latest block number: %v", err)
	}
	blockNumber, err := hexutil.DecodeBig(result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode latest block number %q: %v", result, err)
	}
	return blockNumber, nil
}
