// Package submaster multiplexes the latest value of a fixed set of topics
// for a single polling consumer.
//
// Publishers may call Publish from any goroutine. The consumer calls Poll
// once per tick and then reads Value/Updated/Staleness; those readers must
// only be called from the polling goroutine.
package submaster

import (
	"fmt"
	"sync"

	"github.com/nikoskalogridis/scenestate/internal/msg"
)

type topicState struct {
	value    msg.Message
	updated  bool
	alive    bool
	rcvFrame uint64
}

// SubMaster holds the current value of every subscribed topic.
type SubMaster struct {
	mu      sync.Mutex
	pending map[msg.Topic]msg.Message

	topics []msg.Topic
	state  map[msg.Topic]*topicState
	frame  uint64
}

// New subscribes to topics. Unknown topics are rejected so a typo cannot
// silently leave a stream permanently stale.
func New(topics []msg.Topic) (*SubMaster, error) {
	sm := &SubMaster{
		pending: make(map[msg.Topic]msg.Message, len(topics)),
		state:   make(map[msg.Topic]*topicState, len(topics)),
	}
	for _, t := range topics {
		def := msg.Default(t)
		if def == nil {
			return nil, fmt.Errorf("subscribe %q: %w", t, msg.ErrUnknownTopic)
		}
		if _, dup := sm.state[t]; dup {
			continue
		}
		sm.state[t] = &topicState{value: def}
		sm.topics = append(sm.topics, t)
	}
	return sm, nil
}

// Topics returns the subscription set in construction order.
func (sm *SubMaster) Topics() []msg.Topic {
	out := make([]msg.Topic, len(sm.topics))
	copy(out, sm.topics)
	return out
}

// Publish queues m as the newest value of its topic. Only the latest value
// per topic survives until the next Poll.
func (sm *SubMaster) Publish(m msg.Message) error {
	if m == nil {
		return fmt.Errorf("publish nil message")
	}
	t := m.Topic()
	if _, ok := sm.state[t]; !ok {
		return fmt.Errorf("publish %q: %w", t, msg.ErrUnknownTopic)
	}
	sm.mu.Lock()
	sm.pending[t] = m
	sm.mu.Unlock()
	return nil
}

// Poll advances the frame counter and applies everything published since
// the previous poll. It never blocks on publishers beyond a map swap.
func (sm *SubMaster) Poll() {
	sm.mu.Lock()
	pending := sm.pending
	sm.pending = make(map[msg.Topic]msg.Message, len(sm.state))
	sm.mu.Unlock()

	sm.frame++
	for t, st := range sm.state {
		m, ok := pending[t]
		st.updated = ok
		if !ok {
			continue
		}
		st.value = m
		st.alive = true
		st.rcvFrame = sm.frame
	}
}

// Frame returns the number of polls so far.
func (sm *SubMaster) Frame() uint64 { return sm.frame }

// Value returns the last received payload of t, or its default.
func (sm *SubMaster) Value(t msg.Topic) msg.Message {
	if st, ok := sm.state[t]; ok {
		return st.value
	}
	return msg.Default(t)
}

// Updated reports whether t received a value in the last poll.
func (sm *SubMaster) Updated(t msg.Topic) bool {
	st, ok := sm.state[t]
	return ok && st.updated
}

// Alive reports whether t has ever received a value.
func (sm *SubMaster) Alive(t msg.Topic) bool {
	st, ok := sm.state[t]
	return ok && st.alive
}

// RcvFrame returns the frame at which t last updated, 0 if never.
func (sm *SubMaster) RcvFrame(t msg.Topic) uint64 {
	if st, ok := sm.state[t]; ok {
		return st.rcvFrame
	}
	return 0
}

// Staleness returns the number of polls since t last updated.
func (sm *SubMaster) Staleness(t msg.Topic) uint64 {
	return sm.frame - sm.RcvFrame(t)
}

// Get returns the current value of t as T, or T's zero value if the stored
// payload has another type.
func Get[T msg.Message](sm *SubMaster, t msg.Topic) T {
	v, _ := sm.Value(t).(T)
	return v
}
