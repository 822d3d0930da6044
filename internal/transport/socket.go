package transport

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event names pushed by the backend. Connected is synthetic: emitted locally
// on every successful (re)connect so subscribers can close any gap.
const (
	EventKitchenNewOrder = "nueva_orden_cocina"
	EventTablesChanged   = "mesas_actualizadas"
	EventConnected       = "connected"
)

// Event is one typed notification on the push channel. Data is advisory;
// consumers refetch canonical state rather than patching from it.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Handler consumes events. Handlers must not block; long work belongs in
// the subscriber's own goroutine.
type Handler func(Event)

var (
	socketConnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comanda_socket_connects_total",
		Help: "Successful websocket (re)connections.",
	})
	socketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_socket_events_total",
		Help: "Events received on the push channel, by name.",
	}, []string{"event"})
)

// Socket owns the duplex real-time channel to the backend. One per client
// session; reconnection is transparent to subscribers.
type Socket struct {
	url    string
	dialer *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	handlers  []Handler
	connected bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a socket for the given websocket URL. Call Subscribe before
// Connect; handlers registered later miss earlier events.
func New(url string) *Socket {
	return &Socket{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Subscribe registers a handler for every inbound event
func (s *Socket) Subscribe(fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, fn)
}

// Connected reports whether the channel is currently up. While down,
// reconciliation degrades to timer-driven polling.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Connect starts the connection loop: dial, pump, and on failure redial
// with capped exponential backoff until the context ends
func (s *Socket) Connect(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		backoff := time.Second
		for {
			conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
			if err != nil {
				log.Printf("socket: dial %s failed: %v (retrying in %s)", s.url, err, backoff)
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				if backoff *= 2; backoff > 30*time.Second {
					backoff = 30 * time.Second
				}
				continue
			}

			backoff = time.Second
			socketConnects.Inc()
			s.setConn(conn)
			s.dispatch(Event{Name: EventConnected})

			s.pump(ctx, conn)
			s.setConn(nil)

			select {
			case <-ctx.Done():
				return
			default:
				log.Printf("socket: connection lost, reconnecting")
			}
		}
	}()
}

// Close tears the channel down and waits for the loop to exit
func (s *Socket) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()
	if s.done != nil {
		<-s.done
	}
}

func (s *Socket) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
	s.connected = conn != nil
}

// pump runs the read loop and a ping ticker until the connection drops or
// the context ends
func (s *Socket) pump(ctx context.Context, conn *websocket.Conn) {
	readDone := make(chan struct{})

	go func() {
		defer close(readDone)
		conn.SetReadLimit(512 * 1024)
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("socket: read error: %v", err)
				}
				return
			}
			s.handleMessage(message)
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-readDone:
			conn.Close()
			return
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
			<-readDone
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				<-readDone
				return
			}
		}
	}
}

func (s *Socket) handleMessage(message []byte) {
	var ev Event
	if err := json.Unmarshal(message, &ev); err != nil {
		log.Printf("socket: dropping malformed event: %v", err)
		return
	}
	if ev.Name == "" {
		return
	}
	socketEvents.WithLabelValues(ev.Name).Inc()
	s.dispatch(ev)
}

func (s *Socket) dispatch(ev Event) {
	s.mu.Lock()
	handlers := make([]Handler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
