package events

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// payloadABI decodes the non-indexed event bodies spec.md §6's wire
// signatures describe. None of these events index their arguments, so
// every field lives in the log's Data, not its Topics.
var payloadABI = mustParseEventsABI(`[
  {"anonymous":false,"inputs":[{"indexed":false,"name":"orderIds","type":"bytes32[]"}],"name":"OrderPlaced","type":"event"},
  {"anonymous":false,"inputs":[{"indexed":false,"name":"orderIds","type":"bytes32[]"}],"name":"OrderCanceled","type":"event"},
  {"anonymous":false,"inputs":[{"indexed":false,"name":"orderIds","type":"bytes32[]"}],"name":"OrderUpdated","type":"event"},
  {"anonymous":false,"inputs":[{"indexed":false,"name":"orderIds","type":"bytes32[]"}],"name":"OrderFilled","type":"event"},
  {"anonymous":false,"inputs":[{"indexed":false,"name":"orderId","type":"bytes32"},{"indexed":false,"name":"amountInRemaining","type":"uint128"},{"indexed":false,"name":"amountOutRemaining","type":"uint128"},{"indexed":false,"name":"executionCreditRemaining","type":"uint128"},{"indexed":false,"name":"feeRemaining","type":"uint128"}],"name":"OrderPartialFilled","type":"event"},
  {"anonymous":false,"inputs":[{"indexed":false,"name":"orderId","type":"bytes32"},{"indexed":false,"name":"lastRefreshTimestamp","type":"uint32"},{"indexed":false,"name":"expirationTimestamp","type":"uint32"}],"name":"OrderRefreshed","type":"event"},
  {"anonymous":false,"inputs":[{"indexed":false,"name":"orderId","type":"bytes32"},{"indexed":false,"name":"executionCreditRemaining","type":"uint128"}],"name":"OrderExecutionCreditUpdated","type":"event"}
]`)

func mustParseEventsABI(js string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(js))
	if err != nil {
		panic(err)
	}
	return a
}

// DecodeOrderIDs unpacks the bytes32[] id batch carried by OrderPlaced,
// OrderCanceled, OrderUpdated and OrderFilled logs (spec.md §4.1: these four
// events report every order id touched in a single transaction together).
func DecodeOrderIDs(lg ethtypes.Log) ([]common.Hash, error) {
	kind := ClassifyTopic(lg.Topics[0])
	var raw struct{ OrderIds []common.Hash }
	if err := payloadABI.UnpackIntoInterface(&raw, kind.String(), lg.Data); err != nil {
		return nil, err
	}
	return raw.OrderIds, nil
}

// PartialFillPayload is OrderPartialFilled's decoded body.
type PartialFillPayload struct {
	OrderID                  common.Hash
	AmountInRemaining        *big.Int
	AmountOutRemaining       *big.Int
	ExecutionCreditRemaining *big.Int
	FeeRemaining             *big.Int
}

// DecodePartialFill unpacks an OrderPartialFilled log.
func DecodePartialFill(lg ethtypes.Log) (PartialFillPayload, error) {
	var out PartialFillPayload
	err := payloadABI.UnpackIntoInterface(&out, OrderPartialFilled.String(), lg.Data)
	return out, err
}

// RefreshPayload is OrderRefreshed's decoded body.
type RefreshPayload struct {
	OrderID              common.Hash
	LastRefreshTimestamp uint32
	ExpirationTimestamp  uint32
}

// DecodeRefresh unpacks an OrderRefreshed log.
func DecodeRefresh(lg ethtypes.Log) (RefreshPayload, error) {
	var out RefreshPayload
	err := payloadABI.UnpackIntoInterface(&out, OrderRefreshed.String(), lg.Data)
	return out, err
}

// ExecutionCreditPayload is OrderExecutionCreditUpdated's decoded body.
type ExecutionCreditPayload struct {
	OrderID                  common.Hash
	ExecutionCreditRemaining *big.Int
}

// DecodeExecutionCredit unpacks an OrderExecutionCreditUpdated log.
func DecodeExecutionCredit(lg ethtypes.Log) (ExecutionCreditPayload, error) {
	var out ExecutionCreditPayload
	err := payloadABI.UnpackIntoInterface(&out, OrderExecutionCreditUpdated.String(), lg.Data)
	return out, err
}
