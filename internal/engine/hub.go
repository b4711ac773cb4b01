package engine

import (
	"sync"
	"time"

	"github.com/akyairhashvil/timekeep/internal/models"
)

type EventType string

const (
	EventStarted         EventType = "started"
	EventHeartbeat       EventType = "heartbeat"
	EventInterruptShown  EventType = "interrupt_shown"
	EventInterruptAcked  EventType = "interrupt_acked"
	EventPhaseChanged    EventType = "phase_changed"
	EventStopped         EventType = "stopped"
	EventBudgetWarning   EventType = "budget_warning"
	EventBudgetRecovered EventType = "budget_recovered"
)

// Event describes a change to an owner's timer. Timer is nil once the timer
// has been finalized; Entry is set when a segment was sealed.
type Event struct {
	Type    EventType
	OwnerID string
	Timer   *models.RunningTimer
	Entry   *models.TimeEntry
	At      time.Time
}

// Hub fans timer events out to per-owner subscribers. Slow subscribers miss
// events rather than block the engine.
type Hub struct {
	mu   sync.Mutex
	subs map[string][]chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string][]chan Event)}
}

// Subscribe registers an observer for ownerID. The returned cancel func
// removes and closes the channel.
func (h *Hub) Subscribe(ownerID string, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs[ownerID] = append(h.subs[ownerID], ch)
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			subs := h.subs[ownerID]
			for i, c := range subs {
				if c == ch {
					h.subs[ownerID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(h.subs[ownerID]) == 0 {
				delete(h.subs, ownerID)
			}
			close(ch)
		})
	}
}

func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[event.OwnerID] {
		select {
		case ch <- event:
		default:
		}
	}
}
