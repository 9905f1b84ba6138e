package rpc

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	rpcclient "github.com/cometbft/cometbft/rpc/client"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"

	"github.com/cosmos/gogoproto/proto"

	"cosmossdk.io/log"

	"github.com/cosmos/wasm-indexer/types"
)

// contractInfoQueryPath is the ABCI query path of the x/wasm contract-info
// gRPC query.
const contractInfoQueryPath = "/cosmwasm.wasm.v1.Query/ContractInfo"

// Client wraps a CometBFT RPC connection with the queries the indexer
// needs: contract metadata lookups and chain-id discovery.
type Client struct {
	rpc    *rpchttp.HTTP
	logger log.Logger
}

// NewClient connects to the node RPC at endpoint.
func NewClient(endpoint string, logger log.Logger) (*Client, error) {
	c, err := rpchttp.New(endpoint, "/websocket")
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect rpc server")
	}

	return &Client{
		rpc:    c,
		logger: logger.With("module", "rpc"),
	}, nil
}

// ChainID fetches the chain id from the node's status endpoint.
func (c *Client) ChainID(ctx context.Context) (string, error) {
	status, err := c.rpc.Status(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to query node status")
	}
	return status.NodeInfo.Network, nil
}

// ContractInfo queries the node for the contract metadata at address.
// Returns types.ErrContractNotFound when the node reports no contract at
// that address.
func (c *Client) ContractInfo(ctx context.Context, address string) (*types.ContractInfo, error) {
	req := &types.QueryContractInfoRequest{Address: address}
	data, err := proto.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal contract info request")
	}

	res, err := c.rpc.ABCIQueryWithOptions(ctx, contractInfoQueryPath, data, rpcclient.DefaultABCIQueryOptions)
	if err != nil {
		return nil, errors.Wrap(err, "contract info query failed")
	}

	if res.Response.Code != 0 {
		if isNotFound(res.Response.Log) {
			return nil, types.ErrContractNotFound.Wrap(address)
		}
		return nil, errors.Errorf("contract info query failed with code %d: %s", res.Response.Code, res.Response.Log)
	}

	var resp types.QueryContractInfoResponse
	if err := proto.Unmarshal(res.Response.Value, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal contract info response")
	}

	return &resp.ContractInfo, nil
}

func isNotFound(log string) bool {
	return strings.Contains(log, "not found") || strings.Contains(log, "no such contract")
}
