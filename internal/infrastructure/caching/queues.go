package caching

import (
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/events"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/metrics"
)

// EventQueue is a bounded FIFO of enriched events feeding a drain worker.
// Above the shed watermark, low-priority events are dropped instead of queued.
type EventQueue struct {
	name          string
	ch            chan *events.BehaviorEvent
	shedWatermark int
}

// NewEventQueue creates a queue with the given capacity. A shedWatermark of 0
// disables shedding; the queue then rejects only when completely full.
func NewEventQueue(name string, capacity, shedWatermark int) *EventQueue {
	return &EventQueue{
		name:          name,
		ch:            make(chan *events.BehaviorEvent, capacity),
		shedWatermark: shedWatermark,
	}
}

// Enqueue offers an event to the queue. It returns false when the event was
// shed under pressure or the queue is full; the caller never blocks.
func (q *EventQueue) Enqueue(event *events.BehaviorEvent) bool {
	if q.shedWatermark > 0 && len(q.ch) >= q.shedWatermark && isSheddable(event) {
		metrics.EventsShed.WithLabelValues(q.name).Inc()
		return false
	}

	select {
	case q.ch <- event:
		metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.ch)))
		return true
	default:
		metrics.EventsShed.WithLabelValues(q.name).Inc()
		return false
	}
}

// DrainBatch removes up to max events without blocking.
func (q *EventQueue) DrainBatch(max int) []*events.BehaviorEvent {
	batch := make([]*events.BehaviorEvent, 0, max)
	for len(batch) < max {
		select {
		case event := <-q.ch:
			batch = append(batch, event)
		default:
			metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.ch)))
			return batch
		}
	}
	metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.ch)))
	return batch
}

// Depth returns the current number of queued events.
func (q *EventQueue) Depth() int { return len(q.ch) }

// Capacity returns the queue's fixed capacity.
func (q *EventQueue) Capacity() int { return cap(q.ch) }

// Name returns the queue's metric label.
func (q *EventQueue) Name() string { return q.name }

// isSheddable reports whether an event may be dropped under queue pressure.
// High-priority types and urgent events always keep their place.
func isSheddable(event *events.BehaviorEvent) bool {
	return !event.IsHighPriority()
}
