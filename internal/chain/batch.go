package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// ReadError is a failed chain read. Handlers return it so the runner can retry the event.
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("chain read %s: %v", e.Op, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Call is a single eth_call. A nil Block reads the latest state.
type Call struct {
	To    common.Address
	Data  []byte
	Block *big.Int
}

// CallResult carries the return data or the per-call error of one batched call.
type CallResult struct {
	Data []byte
	Err  error
}

// BatchCall sends every call in one JSON-RPC batch. A transport failure fails the whole
// batch; per-call reverts are reported in the matching CallResult.
func (c *Client) BatchCall(ctx context.Context, calls []Call) ([]CallResult, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	outputs := make([]hexutil.Bytes, len(calls))
	elems := make([]rpc.BatchElem, len(calls))
	for i, call := range calls {
		block := "latest"
		if call.Block != nil {
			block = hexutil.EncodeBig(call.Block)
		}
		elems[i] = rpc.BatchElem{
			Method: "eth_call",
			Args: []interface{}{
				map[string]interface{}{
					"to":   call.To,
					"data": hexutil.Bytes(call.Data),
				},
				block,
			},
			Result: &outputs[i],
		}
	}

	if err := c.rpcClient.BatchCallContext(ctx, elems); err != nil {
		return nil, &ReadError{Op: "batch eth_call", Err: err}
	}

	results := make([]CallResult, len(calls))
	for i, elem := range elems {
		if elem.Error != nil {
			results[i] = CallResult{Err: elem.Error}
			continue
		}
		results[i] = CallResult{Data: outputs[i]}
	}
	return results, nil
}
