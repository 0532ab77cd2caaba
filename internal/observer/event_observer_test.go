package observer

import (
	"context"
	"sync"
	"testing"
	"time"
)

type collectingObserver struct {
	mu     sync.Mutex
	events []AnalysisEvent
	seen   chan struct{}
}

func (o *collectingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	o.mu.Lock()
	o.events = append(o.events, event)
	o.mu.Unlock()
	o.seen <- struct{}{}
}

func (o *collectingObserver) GetObserverName() string { return "collecting_observer" }

func TestEventPublisherNotifiesAllObservers(t *testing.T) {
	publisher := NewEventPublisher()
	a := &collectingObserver{seen: make(chan struct{}, 1)}
	b := &collectingObserver{seen: make(chan struct{}, 1)}
	publisher.Subscribe(a)
	publisher.Subscribe(b)

	publisher.NotifyObservers(context.Background(), AnalysisEvent{
		EventType: AnalysisStarted,
		RequestID: "abc123def456",
	})

	for _, obs := range []*collectingObserver{a, b} {
		select {
		case <-obs.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("observer %s never received the event", obs.GetObserverName())
		}
		obs.mu.Lock()
		if len(obs.events) != 1 || obs.events[0].RequestID != "abc123def456" {
			t.Errorf("observer %s events = %v", obs.GetObserverName(), obs.events)
		}
		obs.mu.Unlock()
	}
}

type panickingObserver struct{}

func (panickingObserver) OnEvent(ctx context.Context, event AnalysisEvent) { panic("boom") }
func (panickingObserver) GetObserverName() string                         { return "panicking_observer" }

func TestEventPublisherSurvivesPanickingObserver(t *testing.T) {
	publisher := NewEventPublisher()
	publisher.Subscribe(panickingObserver{})
	good := &collectingObserver{seen: make(chan struct{}, 1)}
	publisher.Subscribe(good)

	publisher.NotifyObservers(context.Background(), AnalysisEvent{EventType: AnalysisCompleted})

	select {
	case <-good.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("surviving observer never received the event")
	}
}

func TestMetricsObserverCounters(t *testing.T) {
	metrics := NewMetricsObserver()
	ctx := context.Background()

	metrics.OnEvent(ctx, AnalysisEvent{EventType: AnalysisStarted})
	metrics.OnEvent(ctx, AnalysisEvent{EventType: AnalysisStarted})
	metrics.OnEvent(ctx, AnalysisEvent{EventType: AnalysisCompleted, ProcessingTime: 100 * time.Millisecond})
	metrics.OnEvent(ctx, AnalysisEvent{EventType: ImageSkipped})
	metrics.OnEvent(ctx, AnalysisEvent{EventType: LLMVoteMissing})

	got := metrics.GetMetrics()
	if got["total_analyses"] != int64(2) {
		t.Errorf("total_analyses = %v, want 2", got["total_analyses"])
	}
	if got["completed_analyses"] != int64(1) {
		t.Errorf("completed_analyses = %v, want 1", got["completed_analyses"])
	}
	if got["skipped_images"] != int64(1) {
		t.Errorf("skipped_images = %v, want 1", got["skipped_images"])
	}
	if got["missing_llm_votes"] != int64(1) {
		t.Errorf("missing_llm_votes = %v, want 1", got["missing_llm_votes"])
	}
	if got["avg_processing_time"] != 100*time.Millisecond {
		t.Errorf("avg_processing_time = %v", got["avg_processing_time"])
	}
}
