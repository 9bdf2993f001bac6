package mqtt

import (
	"context"
	"strings"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	paho_mqtt.Token
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

type publication struct {
	topic   string
	payload string
}

// fakeClient is an in-memory paho client. Methods the transport never calls
// are left to the embedded nil interface.
type fakeClient struct {
	paho_mqtt.Client

	mu            sync.Mutex
	opts          *paho_mqtt.ClientOptions
	connected     bool
	subscriptions map[string]paho_mqtt.MessageHandler
	unsubscribed  []string
	published     []publication
	disconnects   int

	connectErr error
	publishErr error
}

func (c *fakeClient) Connect() paho_mqtt.Token {
	c.mu.Lock()
	c.connected = c.connectErr == nil
	c.mu.Unlock()
	if c.connectErr == nil && c.opts.OnConnect != nil {
		c.opts.OnConnect(c)
	}
	return &fakeToken{err: c.connectErr}
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnects++
}

func (c *fakeClient) Subscribe(topic string, _ byte, callback paho_mqtt.MessageHandler) paho_mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[topic] = callback
	return &fakeToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) paho_mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		delete(c.subscriptions, t)
		c.unsubscribed = append(c.unsubscribed, t)
	}
	return &fakeToken{}
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho_mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return &fakeToken{err: c.publishErr}
	}
	var body string
	switch p := payload.(type) {
	case string:
		body = p
	case []byte:
		body = string(p)
	}
	c.published = append(c.published, publication{topic: topic, payload: body})
	return &fakeToken{}
}

func (c *fakeClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subscriptions))
	for t := range c.subscriptions {
		out = append(out, t)
	}
	return out
}

func (c *fakeClient) publications() []publication {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]publication(nil), c.published...)
}

// deliver hands a message to the first subscription whose filter matches topic.
func (c *fakeClient) deliver(topic string, payload []byte) *fakeMessage {
	msg := &fakeMessage{topic: topic, payload: payload}
	c.mu.Lock()
	var handler paho_mqtt.MessageHandler
	for filter, h := range c.subscriptions {
		if strings.HasPrefix(topic, strings.TrimSuffix(filter, "#")) {
			handler = h
			break
		}
	}
	c.mu.Unlock()
	if handler != nil {
		handler(c, msg)
	}
	return msg
}

type fakeMessage struct {
	paho_mqtt.Message

	mu      sync.Mutex
	topic   string
	payload []byte
	acked   bool
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }

func (m *fakeMessage) Ack() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = true
}

func (m *fakeMessage) isAcked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acked
}

// fakeBroker hands out fakeClients in creation order: "in" first, then "out".
type fakeBroker struct {
	mu         sync.Mutex
	clients    []*fakeClient
	connectErr error
}

func (b *fakeBroker) newClient(opts *paho_mqtt.ClientOptions) paho_mqtt.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &fakeClient{
		opts:          opts,
		subscriptions: make(map[string]paho_mqtt.MessageHandler),
		connectErr:    b.connectErr,
	}
	b.clients = append(b.clients, c)
	return c
}

func (b *fakeBroker) client(i int) *fakeClient {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i >= len(b.clients) {
		return nil
	}
	return b.clients[i]
}

func (b *fakeBroker) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// MockDispatcher records what the transport hands over.
type MockDispatcher struct {
	mu       sync.Mutex
	Started  int
	Received []string

	StartFunc  func(ctx context.Context) error
	HandleFunc func(ctx context.Context, topic string, payload []byte) bool
}

func (m *MockDispatcher) Start(ctx context.Context) error {
	m.mu.Lock()
	m.Started++
	m.mu.Unlock()
	if m.StartFunc != nil {
		return m.StartFunc(ctx)
	}
	return nil
}

func (m *MockDispatcher) Handle(ctx context.Context, topic string, payload []byte) bool {
	m.mu.Lock()
	m.Received = append(m.Received, topic)
	m.mu.Unlock()
	if m.HandleFunc != nil {
		return m.HandleFunc(ctx, topic, payload)
	}
	return false
}

func (m *MockDispatcher) received() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Received...)
}
