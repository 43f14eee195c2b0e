// Package memory keeps run notifications in process. It backs runs without a
// Pub/Sub topic and doubles as a recording publisher in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// PublishedMessage is one accepted notification.
type PublishedMessage struct {
	ID      string
	Event   string
	Payload any
	// Data is the JSON body a broker would have received.
	Data []byte
}

// Publisher records notifications and logs them at debug level.
type Publisher struct {
	mu       sync.RWMutex
	messages []PublishedMessage
	err      error
	logger   *zap.Logger
}

// New returns an empty Publisher. logger may be nil.
func New(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{logger: logger}
}

// FailWith makes every later Publish return err.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Publish encodes payload like the Pub/Sub publisher would and records it.
func (p *Publisher) Publish(_ context.Context, event string, payload any) (string, error) {
	data, err := gojson.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	p.mu.Lock()
	if p.err != nil {
		err := p.err
		p.mu.Unlock()
		return "", err
	}
	id := fmt.Sprintf("memory-%d", len(p.messages)+1)
	p.messages = append(p.messages, PublishedMessage{ID: id, Event: event, Payload: payload, Data: data})
	p.mu.Unlock()

	p.logger.Debug("notification", zap.String("id", id), zap.String("event", event), zap.ByteString("data", data))
	return id, nil
}

// Messages returns every recorded notification in publish order.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// Events returns the recorded notifications for one event name.
func (p *Publisher) Events(event string) []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []PublishedMessage
	for _, m := range p.messages {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}
