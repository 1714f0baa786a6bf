package remote

import (
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	msgs   []string
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.msgs = append(p.msgs, string(payload.([]byte)))
	return &paho.DummyToken{}
}

func (p *fakePublisher) messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.msgs...)
}

func TestClientOptionsFromURL(t *testing.T) {
	opts, prefix, err := ClientOptionsFromURL("mqtt://user:pw@broker:1883/lab/avr?client-id=bench1")
	require.NoError(t, err)

	require.Equal(t, "lab/avr", prefix)
	require.Len(t, opts.Servers, 1)
	require.Equal(t, "tcp://broker:1883", opts.Servers[0].String())
	require.Equal(t, "user", opts.Username)
	require.Equal(t, "pw", opts.Password)
	require.Equal(t, "bench1", opts.ClientID)
}

func TestClientOptionsDefaults(t *testing.T) {
	opts, prefix, err := ClientOptionsFromURL("ws://broker:8080")
	require.NoError(t, err)

	require.Equal(t, DefaultTopicPrefix, prefix)
	require.Equal(t, "ws://broker:8080", opts.Servers[0].String())
	require.True(t, strings.HasPrefix(opts.ClientID, "upditerm-"), opts.ClientID)
}

func TestMQTTMirrorBatchesOutput(t *testing.T) {
	hub := NewHub(16)
	pub := &fakePublisher{}
	m := newMQTTMirror(pub, "lab/avr", hub)
	m.start()

	for _, c := range []byte("hi\nyo") {
		hub.Output(c)
	}

	require.Eventually(t, func() bool {
		return len(pub.messages()) == 2
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"hi\n", "yo"}, pub.messages())
	require.Equal(t, "lab/avr/out", pub.topics[0])

	require.NoError(t, m.Close())
	require.Zero(t, hub.Subscribers())
}

func TestMQTTMirrorFlushesOnClose(t *testing.T) {
	hub := NewHub(16)
	pub := &fakePublisher{}
	m := newMQTTMirror(pub, DefaultTopicPrefix, hub)
	m.start()

	hub.Output('z')
	require.NoError(t, m.Close())

	require.Equal(t, []string{"z"}, pub.messages())
}
