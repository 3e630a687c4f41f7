// Package notify carries out-of-band messages from tools and background
// pollers to the user, outside the tool_use/tool_result cycle.
package notify

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Well-known channel and topics.
const (
	ChannelIOPub = "iopub"

	TopicJobResponse = "job_response"
	TopicDataSources = "data_sources"
)

// Channel is the push primitive exposed by the hosting loop.
// Implementations must be safe for concurrent use.
type Channel interface {
	Push(channel, topic string, payload map[string]any) error
}

// Notification is one pushed message.
type Notification struct {
	ID      string
	Channel string
	Topic   string
	Payload map[string]any
	At      time.Time
}

// Queue buffers notifications until the hosting loop drains them.
type Queue struct {
	mu    sync.Mutex
	items []Notification
}

func NewQueue() *Queue { return &Queue{} }

func (q *Queue) Push(channel, topic string, payload map[string]any) error {
	n := Notification{
		ID:      uuid.NewString(),
		Channel: channel,
		Topic:   topic,
		Payload: payload,
		At:      time.Now().UTC(),
	}
	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()
	return nil
}

// Drain returns pending notifications in arrival order and empties the queue.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len reports how many notifications are pending.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Writer renders each notification to W as soon as it is pushed.
type Writer struct {
	mu sync.Mutex
	W  io.Writer
}

func (w *Writer) Push(channel, topic string, payload map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.W, "\n\u001b[92m[%s]\u001b[0m %s\n", topic, Render(payload))
	return err
}

// Fanout pushes to every channel and joins their errors.
type Fanout []Channel

func (f Fanout) Push(channel, topic string, payload map[string]any) error {
	var errs []error
	for _, c := range f {
		if err := c.Push(channel, topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Render turns a payload into display text. A "response" string is shown
// verbatim; anything else is listed as key=value pairs in key order.
func Render(payload map[string]any) string {
	if s, ok := payload["response"].(string); ok {
		return s
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%v", k, payload[k])
	}
	return out
}
