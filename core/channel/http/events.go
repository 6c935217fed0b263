package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/artpar/anvil/adapters/metrics"
	"github.com/artpar/anvil/core/events"
)

const (
	streamBuffer = 64
	writeWait    = 10 * time.Second
	pingPeriod   = 30 * time.Second
)

var errSlowClient = errors.New("event stream client is not keeping up")

// streamClient is the bus side of one websocket connection. Events queue in
// out; once the queue overflows slow is closed and the client is dropped.
type streamClient struct {
	out  chan events.Event
	slow chan struct{}
	once sync.Once
}

func newStreamClient(size int) *streamClient {
	return &streamClient{
		out:  make(chan events.Event, size),
		slow: make(chan struct{}),
	}
}

func (c *streamClient) deliver(_ context.Context, e events.Event) error {
	select {
	case c.out <- e:
		return nil
	default:
		c.once.Do(func() { close(c.slow) })
		return errSlowClient
	}
}

// eventStream pushes bus events to websocket clients as JSON messages.
// Clients may pass ?resource=<slug> to receive a single resource's events.
type eventStream struct {
	bus      *events.Bus
	logger   zerolog.Logger
	metrics  *metrics.Collector
	buffer   int
	upgrader websocket.Upgrader
}

func newEventStream(bus *events.Bus, logger zerolog.Logger, m *metrics.Collector) *eventStream {
	return &eventStream{
		bus:     bus,
		logger:  logger,
		metrics: m,
		buffer:  streamBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (s *eventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	pattern := "*"
	if slug := r.URL.Query().Get("resource"); slug != "" {
		pattern = slug + ".*"
	}

	client := newStreamClient(s.buffer)
	unsubscribe := s.bus.Subscribe(pattern, client.deliver)
	defer unsubscribe()

	s.metrics.TrackStreamClient(1)
	defer s.metrics.TrackStreamClient(-1)

	log := s.logger.With().Str("remote", r.RemoteAddr).Str("pattern", pattern).Logger()
	log.Debug().Msg("event stream client connected")
	defer log.Debug().Msg("event stream client disconnected")

	// The read loop only detects the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e := <-client.out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				log.Debug().Err(err).Msg("event stream write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-client.slow:
			log.Warn().Int("buffer", s.buffer).Msg("event stream client fell behind, closing")
			msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, errSlowClient.Error())
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case <-done:
			return
		}
	}
}
