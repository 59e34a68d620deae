package session

import (
	"errors"
	"sync"
	"time"

	"github.com/seu-repo/ocpp-central/internal/domain"
)

// sendBuffer bounds each connection's outbound queue. The writer goroutine
// drains it, so it only fills when the peer stops reading.
const sendBuffer = 256

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// Connection is one live charge point session. Outbound text is queued on
// an internal channel drained by the server's writer goroutine.
type Connection struct {
	ID            int64
	ChargePointID string
	Version       domain.OcppVersion
	ConnectedAt   time.Time

	mu           sync.Mutex
	sendCh       chan []byte
	closed       bool
	lastActivity time.Time
}

func newConnection(id int64, chargePointID string, version domain.OcppVersion) *Connection {
	now := time.Now().UTC()
	return &Connection{
		ID:            id,
		ChargePointID: chargePointID,
		Version:       version,
		ConnectedAt:   now,
		sendCh:        make(chan []byte, sendBuffer),
		lastActivity:  now,
	}
}

// Outbound is the channel the writer goroutine drains. It is closed when
// the connection is evicted or unregistered.
func (c *Connection) Outbound() <-chan []byte {
	return c.sendCh
}

// Send queues text for delivery. It never blocks: a full buffer fails with
// ErrSendBufferFull, a closed connection with ErrConnectionClosed.
func (c *Connection) Send(text []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.sendCh <- text:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Touch refreshes the activity timestamp.
func (c *Connection) Touch() {
	c.mu.Lock()
	c.lastActivity = time.Now().UTC()
	c.mu.Unlock()
}

// LastActivity returns the time of the last inbound frame.
func (c *Connection) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// close shuts the send channel so the writer goroutine exits. Safe to call
// more than once.
func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.sendCh)
}
