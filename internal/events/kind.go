// Package events classifies raw chain logs into the executor's semantic
// event set (spec.md §4.1: "Event decoder", relative share 5%). It never
// fetches state — classification is a pure function of a log's topics.
package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Kind enumerates the event set spec.md §4.1 defines.
type Kind uint8

const (
	KindUnknown Kind = iota
	OrderPlaced
	OrderCanceled
	OrderUpdated
	OrderFilled
	OrderPartialFilled
	OrderRefreshed
	OrderExecutionCreditUpdated
	V2Sync
	V3Swap
)

func (k Kind) String() string {
	switch k {
	case OrderPlaced:
		return "OrderPlaced"
	case OrderCanceled:
		return "OrderCanceled"
	case OrderUpdated:
		return "OrderUpdated"
	case OrderFilled:
		return "OrderFilled"
	case OrderPartialFilled:
		return "OrderPartialFilled"
	case OrderRefreshed:
		return "OrderRefreshed"
	case OrderExecutionCreditUpdated:
		return "OrderExecutionCreditUpdated"
	case V2Sync:
		return "V2Sync"
	case V3Swap:
		return "V3Swap"
	default:
		return "Unknown"
	}
}

// IsOrderEvent reports whether this kind belongs to the order-event pass.
func (k Kind) IsOrderEvent() bool {
	switch k {
	case OrderPlaced, OrderCanceled, OrderUpdated, OrderFilled, OrderPartialFilled, OrderRefreshed, OrderExecutionCreditUpdated:
		return true
	default:
		return false
	}
}

// IsPoolEvent reports whether this kind belongs to the pool-event pass.
func (k Kind) IsPoolEvent() bool {
	return k == V2Sync || k == V3Swap
}

// Topic-0 signatures for each event kind. Hashes are computed from the wire
// signatures in spec.md §6, matching the topics the original Rust executor
// matches in src/events/mod.rs.
var (
	topicOrderPlaced                 = crypto.Keccak256Hash([]byte("OrderPlaced(bytes32[])"))
	topicOrderCanceled                = crypto.Keccak256Hash([]byte("OrderCanceled(bytes32[])"))
	topicOrderUpdated                 = crypto.Keccak256Hash([]byte("OrderUpdated(bytes32[])"))
	topicOrderFilled                  = crypto.Keccak256Hash([]byte("OrderFilled(bytes32[])"))
	topicOrderPartialFilled           = crypto.Keccak256Hash([]byte("OrderPartialFilled(bytes32,uint128,uint128,uint128,uint128)"))
	topicOrderRefreshed               = crypto.Keccak256Hash([]byte("OrderRefreshed(bytes32,uint32,uint32)"))
	topicOrderExecutionCreditUpdated  = crypto.Keccak256Hash([]byte("OrderExecutionCreditUpdated(bytes32,uint128)"))
	topicV2Sync                       = crypto.Keccak256Hash([]byte("Sync(uint112,uint112)"))
	topicV3Swap                       = crypto.Keccak256Hash([]byte("Swap(address,address,int256,int256,uint160,uint128,int24)"))

	topicToKind = map[common.Hash]Kind{
		topicOrderPlaced:                OrderPlaced,
		topicOrderCanceled:              OrderCanceled,
		topicOrderUpdated:               OrderUpdated,
		topicOrderFilled:                OrderFilled,
		topicOrderPartialFilled:         OrderPartialFilled,
		topicOrderRefreshed:             OrderRefreshed,
		topicOrderExecutionCreditUpdated: OrderExecutionCreditUpdated,
		topicV2Sync:                     V2Sync,
		topicV3Swap:                     V3Swap,
	}
)

// ClassifyTopic returns the Kind for a log's topic-0, or KindUnknown if it
// is not one of the nine recognized signatures.
func ClassifyTopic(topic0 common.Hash) Kind {
	if k, ok := topicToKind[topic0]; ok {
		return k
	}
	return KindUnknown
}

// Topics returns the filter topic list every subscription/query should use
// to cover all recognized event signatures (spec.md §4.7: "topic filter
// covering all event signatures").
func Topics() []common.Hash {
	topics := make([]common.Hash, 0, len(topicToKind))
	for t := range topicToKind {
		topics = append(topics, t)
	}
	return topics
}
