// Package push consumes the server's websocket notification channel. It
// decodes events and hands them to a sink (the sync engine's queue); it
// never interprets them. Connection lifecycle drives the status machine.
package push

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/paulologeh/pychat/internal/bus"
	"github.com/paulologeh/pychat/internal/status"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Sink receives each decoded event in arrival order.
type Sink func(Event)

// Config holds listener settings.
type Config struct {
	URL                  string
	Cookie               string
	MaxReconnectAttempts int           // consecutive failures before Degraded
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
}

func (c *Config) defaults() {
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = 10
	}
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = time.Second
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = 30 * time.Second
	}
}

// Listener maintains the websocket connection and feeds decoded events to
// the sink.
type Listener struct {
	cfg     Config
	sink    Sink
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewListener creates a listener. The sink must not block for long; the
// engine's queue accepts events without waiting.
func NewListener(cfg Config, sink Sink, b *bus.Bus, machine *status.Machine, logger *zap.Logger) *Listener {
	cfg.defaults()
	return &Listener{
		cfg:     cfg,
		sink:    sink,
		bus:     b,
		machine: machine,
		logger:  logger,
	}
}

// Start runs the connect/read loop in the background.
func (l *Listener) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	go l.run(ctx)
}

// Stop terminates the listener and waits for the loop to exit.
func (l *Listener) Stop() {
	if l.cancel != nil {
		l.cancel()
		<-l.done
	}
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := l.dial(ctx)
		if err != nil {
			attempt++
			l.logger.Warn("push channel connect failed",
				zap.Error(err), zap.Int("attempt", attempt))
			if attempt >= l.cfg.MaxReconnectAttempts {
				if l.machine.Current() != status.Degraded {
					_ = l.machine.Transition(status.Degraded)
				}
			}
			select {
			case <-time.After(l.backoff(attempt)):
			case <-ctx.Done():
				return
			}
			continue
		}

		attempt = 0
		l.logger.Info("push channel connected")
		l.publish("push.connected", nil)
		if cur := l.machine.Current(); cur == status.Reconnecting || cur == status.Degraded {
			_ = l.machine.Transition(status.Ready)
		}

		l.readLoop(ctx, conn)
		_ = conn.Close(websocket.StatusNormalClosure, "")

		if ctx.Err() != nil {
			return
		}
		l.logger.Warn("push channel disconnected")
		l.publish("push.disconnected", nil)
		if l.machine.Current() == status.Ready {
			_ = l.machine.Transition(status.Reconnecting)
		}
	}
}

func (l *Listener) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	header := http.Header{}
	if l.cfg.Cookie != "" {
		header.Set("Cookie", l.cfg.Cookie)
	}
	conn, _, err := websocket.Dial(dialCtx, l.cfg.URL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	return conn, err
}

func (l *Listener) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			return
		}
		evt, err := Decode(frame)
		if err != nil {
			// Unknown frames are forward-compatible no-ops.
			l.logger.Warn("ignoring undecodable push frame", zap.Error(err))
			continue
		}
		l.sink(evt)
	}
}

// backoff returns a jittered exponential delay for the given attempt.
func (l *Listener) backoff(attempt int) time.Duration {
	d := float64(l.cfg.ReconnectBaseDelay) * math.Pow(2, float64(attempt-1))
	if ceil := float64(l.cfg.ReconnectMaxDelay); d > ceil {
		d = ceil
	}
	return time.Duration(d * (0.5 + rand.Float64()/2))
}

func (l *Listener) publish(kind string, payload any) {
	if l.bus != nil {
		l.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
	}
}
