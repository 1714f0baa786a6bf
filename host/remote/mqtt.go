package remote

import (
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

const (
	// DefaultTopicPrefix is used when the broker URL has no path
	DefaultTopicPrefix = "upditerm"

	flushInterval = 50 * time.Millisecond
	maxPayload    = 256
	outQueueSize  = 4096
)

// publisher is the part of paho.Client the mirror publishes through
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// MQTTMirror publishes target output to <prefix>/out and feeds messages
// from <prefix>/in to the hub as keystrokes
type MQTTMirror struct {
	client paho.Client
	pub    publisher
	prefix string
	hub    *Hub

	out   chan byte
	done  chan struct{}
	wg    sync.WaitGroup
	unsub func()
}

// DefaultClientID is upditerm-<machine id>. The id is hashed with the
// application name so the raw machine id never leaves the host.
func DefaultClientID() string {
	id, err := machineid.ProtectedID("upditerm")
	if err != nil {
		glog.V(1).Infof("mqtt: no machine id (%v), using host name", err)
		id, _ = os.Hostname()
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return "upditerm-" + id
}

// ClientOptionsFromURL creates ClientOptions from a broker URL of the form
// mqtt://[user[:password]@]host:port/prefix?client-id=id
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	var server string
	if u.Scheme == "" || u.Scheme == "mqtt" {
		server = "tcp"
	} else {
		server = u.Scheme
	}
	server += "://" + u.Host

	topicPrefix := strings.Trim(u.Path, "/")
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}

	clientID := u.Query().Get("client-id")
	if clientID == "" {
		clientID = DefaultClientID()
	}
	opts.SetClientID(clientID)

	return opts, topicPrefix, nil
}

// DialMQTT connects to the broker and starts mirroring the hub
func DialMQTT(brokerURL string, hub *Hub) (*MQTTMirror, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}

	m := newMQTTMirror(nil, prefix, hub)
	opts.SetOnConnectHandler(m.onConnect)
	opts.SetConnectionLostHandler(func(c paho.Client, err error) {
		glog.Warningf("mqtt: connection lost: %v", err)
	})
	m.client = paho.NewClient(opts)
	m.pub = m.client

	token := m.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}
	m.start()
	return m, nil
}

func newMQTTMirror(pub publisher, prefix string, hub *Hub) *MQTTMirror {
	return &MQTTMirror{
		pub:    pub,
		prefix: prefix,
		hub:    hub,
		out:    make(chan byte, outQueueSize),
		done:   make(chan struct{}),
	}
}

func (m *MQTTMirror) start() {
	m.unsub = m.hub.Subscribe(m.enqueue)
	m.wg.Add(1)
	go m.flusher()
}

// Topic returns the full name of a mirror topic
func (m *MQTTMirror) Topic(name string) string {
	return m.prefix + "/" + name
}

func (m *MQTTMirror) onConnect(c paho.Client) {
	glog.Info("mqtt: connected")
	c.Subscribe(m.Topic("in"), 0, func(c paho.Client, msg paho.Message) {
		glog.V(2).Infof("mqtt: RCV %q", msg.Topic())
		m.hub.Inject(msg.Payload())
	})
}

func (m *MQTTMirror) enqueue(p []byte) {
	for _, b := range p {
		select {
		case m.out <- b:
		default:
			// broker too slow, the terminal must not stall
		}
	}
}

// flusher publishes output in batches: at end of line, when the batch is
// full, or after a short quiet period
func (m *MQTTMirror) flusher() {
	defer m.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	var batch []byte
	flush := func() {
		if len(batch) == 0 {
			return
		}
		m.pub.Publish(m.Topic("out"), 0, false, batch)
		batch = nil
	}

	for {
		select {
		case b := <-m.out:
			batch = append(batch, b)
			if b == '\n' || len(batch) >= maxPayload {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-m.done:
			for {
				select {
				case b := <-m.out:
					batch = append(batch, b)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close flushes pending output and disconnects
func (m *MQTTMirror) Close() error {
	if m.unsub != nil {
		m.unsub()
	}
	close(m.done)
	m.wg.Wait()
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}
