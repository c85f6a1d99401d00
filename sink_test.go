package settler

import (
	"context"
	"testing"
)

func TestChannelSink_DeliversInOrder(t *testing.T) {
	sink := NewChannelSink(4)
	ctx := context.Background()

	_ = sink.Publish(ctx, LiquidityEvent{Action: "add", Amount: 1})
	_ = sink.Publish(ctx, LiquidityEvent{Action: "add", Amount: 2})

	first := <-sink.Events()
	second := <-sink.Events()
	if first.(LiquidityEvent).Amount != 1 || second.(LiquidityEvent).Amount != 2 {
		t.Error("Expected FIFO delivery")
	}
	if sink.Dropped() != 0 {
		t.Errorf("Expected no drops, got %d", sink.Dropped())
	}
}

func TestChannelSink_DropsWhenFull(t *testing.T) {
	sink := NewChannelSink(1)
	ctx := context.Background()

	if err := sink.Publish(ctx, EmergenceEvent{NoveltyScore: 1}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	// Buffer full: publish must not block and must not error.
	if err := sink.Publish(ctx, EmergenceEvent{NoveltyScore: 2}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if sink.Dropped() != 1 {
		t.Errorf("Expected one drop, got %d", sink.Dropped())
	}
}
