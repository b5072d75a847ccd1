package events

import (
	"testing"

	"maskbrowser/backend/domain"
)

func TestBus_Publish_CallsTypeAndAllHandlers(t *testing.T) {
	t.Parallel()

	bus := NewBus()

	var calls []string
	bus.Subscribe(EventTransition, func(event Event) {
		calls = append(calls, "typed:"+string(event.(TransitionEvent).To))
	})
	bus.Subscribe(EventProxyApplyFailed, func(Event) {
		calls = append(calls, "wrong")
	})
	bus.SubscribeAll(func(event Event) {
		calls = append(calls, "all:"+string(event.Type()))
	})

	bus.Publish(TransitionEvent{From: domain.StateInit, To: domain.StateConfigResolved})

	want := []string{"typed:config-resolved", "all:session.transition"}
	if len(calls) != len(want) || calls[0] != want[0] || calls[1] != want[1] {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
}

func TestBus_NilIsSilent(t *testing.T) {
	t.Parallel()

	var bus *Bus
	bus.Publish(ProxyEvent{EventType: EventProxyApplyFailed})
}
