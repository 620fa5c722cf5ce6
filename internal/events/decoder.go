package events

import (
	"log/slog"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// OrderEvent pairs a classified Kind with the raw log that produced it, so
// downstream state-machine code can pick it apart by ABI without
// re-classifying.
type OrderEvent struct {
	Kind Kind
	Log  ethtypes.Log
}

// Decode splits a raw block's logs into the order-event and pool-event
// passes spec.md §4.1 describes. Unknown topics are discarded with a DEBUG
// log line — this is the ambient-logging supplement SPEC_FULL.md §5.1
// calls out (the original source silently drops them).
func Decode(logs []ethtypes.Log, logger *slog.Logger) (orderEvents []OrderEvent, poolEvents []ethtypes.Log) {
	for _, lg := range logs {
		if len(lg.Topics) == 0 {
			continue
		}
		kind := ClassifyTopic(lg.Topics[0])
		switch {
		case kind.IsOrderEvent():
			orderEvents = append(orderEvents, OrderEvent{Kind: kind, Log: lg})
		case kind.IsPoolEvent():
			poolEvents = append(poolEvents, lg)
		default:
			if logger != nil {
				logger.Debug("discarding log with unrecognized topic-0",
					"address", lg.Address, "topic0", lg.Topics[0])
			}
		}
	}
	return orderEvents, poolEvents
}
