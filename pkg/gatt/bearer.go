package gatt

import (
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/pion/logging"
)

type pendingWrite struct {
	handle uint16
	pdu    []byte
	done   WriteCallback
}

// ClientBearerConfig configures a ClientBearer.
type ClientBearerConfig struct {
	// ConnID identifies the ACL connection; it is passed back in callbacks.
	ConnID uint16

	// Conn carries ATT PDUs, usually Pipe.ClientConn.
	Conn net.Conn

	// MTU is the negotiated ATT_MTU. Default: LEAudioMTU
	MTU int

	// OnNotification receives Handle Value Notifications.
	OnNotification NotificationHandler

	// OnClose is called once when the bearer stops reading.
	OnClose func(connID uint16)

	LoggerFactory logging.LoggerFactory
}

// ClientBearer is the client side of an ATT bearer. Write Requests are
// serialized: ATT allows one outstanding request per bearer, so later writes
// queue until the previous response arrives.
type ClientBearer struct {
	connID         uint16
	conn           net.Conn
	mtu            int
	onNotification NotificationHandler
	onClose        func(connID uint16)
	log            logging.LeveledLogger

	mu       sync.Mutex
	queue    deque.Deque[*pendingWrite]
	inFlight *pendingWrite
	closed   bool
	wg       sync.WaitGroup
}

// NewClientBearer creates a bearer and starts its read loop.
func NewClientBearer(config ClientBearerConfig) *ClientBearer {
	b := &ClientBearer{
		connID:         config.ConnID,
		conn:           config.Conn,
		mtu:            config.MTU,
		onNotification: config.OnNotification,
		onClose:        config.OnClose,
	}
	if b.mtu == 0 {
		b.mtu = LEAudioMTU
	}
	if config.LoggerFactory != nil {
		b.log = config.LoggerFactory.NewLogger("gatt")
	}

	b.wg.Add(1)
	go b.readLoop()
	return b
}

// ConnID returns the connection id.
func (b *ClientBearer) ConnID() uint16 {
	return b.connID
}

// Write writes a characteristic value. done is called from the bearer's
// goroutine, never from within Write.
func (b *ClientBearer) Write(handle uint16, value []byte, writeType WriteType, done WriteCallback) error {
	if len(value) > b.mtu-3 {
		return ErrValueTooLong
	}

	op := opWriteRequest
	if writeType == WriteTypeWithoutResponse {
		op = opWriteCommand
	}
	pdu := make([]byte, 3, 3+len(value))
	pdu[0] = op
	binary.LittleEndian.PutUint16(pdu[1:], handle)
	pdu = append(pdu, value...)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	if writeType == WriteTypeWithoutResponse {
		if _, err := b.conn.Write(pdu); err != nil {
			return err
		}
		if done != nil {
			go done(b.connID, handle, StatusSuccess)
		}
		return nil
	}

	b.queue.PushBack(&pendingWrite{handle: handle, pdu: pdu, done: done})
	if b.inFlight == nil {
		return b.sendNextLocked()
	}
	return nil
}

func (b *ClientBearer) sendNextLocked() error {
	if b.queue.Len() == 0 {
		return nil
	}
	w := b.queue.PopFront()
	if _, err := b.conn.Write(w.pdu); err != nil {
		return err
	}
	b.inFlight = w
	return nil
}

func (b *ClientBearer) readLoop() {
	defer b.wg.Done()

	buf := make([]byte, b.mtu+8)
	for {
		n, err := b.conn.Read(buf)
		if err != nil {
			b.shutdown()
			return
		}
		if n == 0 {
			continue
		}
		pdu := make([]byte, n)
		copy(pdu, buf[:n])
		b.handlePDU(pdu)
	}
}

func (b *ClientBearer) handlePDU(pdu []byte) {
	switch pdu[0] {
	case opWriteResponse:
		b.completeWrite(StatusSuccess)

	case opErrorResponse:
		// Request opcode, attribute handle, error code.
		if len(pdu) < 5 {
			b.logf("conn %d: short error response", b.connID)
			return
		}
		b.completeWrite(Status(pdu[4]))

	case opHandleValueNotify:
		if len(pdu) < 3 {
			b.logf("conn %d: short notification", b.connID)
			return
		}
		if b.onNotification != nil {
			b.onNotification(b.connID, binary.LittleEndian.Uint16(pdu[1:3]), pdu[3:])
		}

	default:
		b.logf("conn %d: unexpected ATT opcode 0x%02x", b.connID, pdu[0])
	}
}

func (b *ClientBearer) completeWrite(status Status) {
	b.mu.Lock()
	w := b.inFlight
	b.inFlight = nil
	if !b.closed {
		if err := b.sendNextLocked(); err != nil {
			b.logf("conn %d: write failed: %v", b.connID, err)
		}
	}
	b.mu.Unlock()

	if w == nil {
		b.logf("conn %d: response without request", b.connID)
		return
	}
	if w.done != nil {
		w.done(b.connID, w.handle, status)
	}
}

// shutdown fails every queued write and reports the closure.
func (b *ClientBearer) shutdown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	var failed []*pendingWrite
	if b.inFlight != nil {
		failed = append(failed, b.inFlight)
		b.inFlight = nil
	}
	for b.queue.Len() > 0 {
		failed = append(failed, b.queue.PopFront())
	}
	b.mu.Unlock()

	for _, w := range failed {
		if w.done != nil {
			w.done(b.connID, w.handle, StatusUnlikelyError)
		}
	}
	if b.onClose != nil {
		b.onClose(b.connID)
	}
}

// Close closes the underlying connection and waits for the read loop.
func (b *ClientBearer) Close() error {
	err := b.conn.Close()
	// Unblock a read the peer will never answer.
	_ = b.conn.SetReadDeadline(time.Now())
	b.wg.Wait()
	return err
}

func (b *ClientBearer) logf(format string, args ...any) {
	if b.log != nil {
		b.log.Warnf(format, args...)
	}
}
