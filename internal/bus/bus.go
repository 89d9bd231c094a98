// Package bus mirrors room events onto NATS so other services can follow
// live games.
package bus

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// SubjectPrefix roots every mirrored subject.
const SubjectPrefix = "duel"

// RoomEvent is one outbound room message as seen on the bus.
type RoomEvent struct {
	GameType string    `json:"gameType"`
	Room     string    `json:"room"`
	Type     string    `json:"type"`
	Payload  any       `json:"payload,omitempty"`
	At       time.Time `json:"at"`
}

// Subject is duel.<gameType>.<room>.<type>.
func (e RoomEvent) Subject() string {
	return strings.Join([]string{SubjectPrefix, token(e.GameType), token(e.Room), token(e.Type)}, ".")
}

// token keeps a subject segment free of NATS separators and wildcards.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}

// Mirror receives room events. Implementations must not block.
type Mirror interface {
	Publish(ev RoomEvent)
	Close()
}

type publisher interface {
	Publish(subj string, data []byte) error
}

// NATS publishes room events as JSON. Errors are logged and dropped.
type NATS struct {
	conn publisher
	nc   *nats.Conn
	log  logrus.FieldLogger
}

// Connect dials url, with token auth when token is set.
func Connect(url, token string, logger logrus.FieldLogger) (*NATS, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	opts := []nats.Option{
		nats.Name("duel-server"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infof("nats reconnected to %s", c.ConnectedUrl())
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return &NATS{conn: nc, nc: nc, log: logger}, nil
}

func newNATS(p publisher, logger logrus.FieldLogger) *NATS {
	return &NATS{conn: p, log: logger}
}

func (n *NATS) Publish(ev RoomEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		n.log.Warnf("nats: marshal %s: %v", ev.Type, err)
		return
	}
	if err := n.conn.Publish(ev.Subject(), data); err != nil {
		n.log.WithField("room", ev.Room).Warnf("nats: publish %s: %v", ev.Subject(), err)
	}
}

// Close flushes pending messages and closes the connection.
func (n *NATS) Close() {
	if n.nc == nil {
		return
	}
	if err := n.nc.Drain(); err != nil {
		n.nc.Close()
	}
}

// Nop drops everything. Used when NATS is not configured.
type Nop struct{}

func (Nop) Publish(RoomEvent) {}
func (Nop) Close()            {}
