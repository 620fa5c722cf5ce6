package events

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

func TestDecodeSplitsOrderAndPoolEvents(t *testing.T) {
	t.Parallel()

	logs := []ethtypes.Log{
		{Topics: []common.Hash{topicOrderPlaced}},
		{Topics: []common.Hash{topicV2Sync}},
		{Topics: []common.Hash{common.HexToHash("0xdeadbeef")}}, // unknown
	}

	orderEvents, poolEvents := Decode(logs, nil)

	if len(orderEvents) != 1 || orderEvents[0].Kind != OrderPlaced {
		t.Fatalf("unexpected order events: %+v", orderEvents)
	}
	if len(poolEvents) != 1 {
		t.Fatalf("unexpected pool events: %+v", poolEvents)
	}
}

func TestClassifyTopicUnknown(t *testing.T) {
	t.Parallel()
	if ClassifyTopic(common.HexToHash("0x01")) != KindUnknown {
		t.Fatal("expected KindUnknown for unrecognized topic")
	}
}

func TestTopicsCoversAllNine(t *testing.T) {
	t.Parallel()
	if len(Topics()) != 9 {
		t.Fatalf("Topics() returned %d entries, want 9", len(Topics()))
	}
}
