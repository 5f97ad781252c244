package gatt

import (
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"
)

// WriteHandler serves a write on the server side. The returned status is sent
// in the Write Response or Error Response; it is ignored for Write Commands.
type WriteHandler func(handle uint16, value []byte, writeType WriteType) Status

// ServerBearerConfig configures a ServerBearer.
type ServerBearerConfig struct {
	// Conn carries ATT PDUs, usually Pipe.ServerConn.
	Conn net.Conn

	// MTU is the negotiated ATT_MTU. Default: LEAudioMTU
	MTU int

	// OnWrite serves incoming writes.
	OnWrite WriteHandler

	LoggerFactory logging.LoggerFactory
}

// ServerBearer is the server side of an ATT bearer. It only implements the
// procedures the LE Audio client exercises: writes and notifications.
type ServerBearer struct {
	conn    net.Conn
	mtu     int
	onWrite WriteHandler
	log     logging.LeveledLogger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewServerBearer creates a bearer and starts its read loop.
func NewServerBearer(config ServerBearerConfig) *ServerBearer {
	s := &ServerBearer{
		conn:    config.Conn,
		mtu:     config.MTU,
		onWrite: config.OnWrite,
	}
	if s.mtu == 0 {
		s.mtu = LEAudioMTU
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("gatt-server")
	}

	s.wg.Add(1)
	go s.readLoop()
	return s
}

// Notify sends a Handle Value Notification. Values longer than ATT_MTU-3 are
// rejected rather than truncated.
func (s *ServerBearer) Notify(handle uint16, value []byte) error {
	if len(value) > s.mtu-3 {
		return ErrValueTooLong
	}
	pdu := make([]byte, 3, 3+len(value))
	pdu[0] = opHandleValueNotify
	binary.LittleEndian.PutUint16(pdu[1:], handle)
	pdu = append(pdu, value...)
	return s.send(pdu)
}

func (s *ServerBearer) send(pdu []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	_, err := s.conn.Write(pdu)
	return err
}

func (s *ServerBearer) readLoop() {
	defer s.wg.Done()

	buf := make([]byte, s.mtu+8)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			s.mu.Lock()
			s.closed = true
			s.mu.Unlock()
			return
		}
		if n < 3 {
			if n > 0 && buf[0] == opWriteRequest {
				s.sendError(buf[0], 0, StatusInvalidPDU)
			}
			continue
		}
		op := buf[0]
		handle := binary.LittleEndian.Uint16(buf[1:3])
		value := make([]byte, n-3)
		copy(value, buf[3:n])

		switch op {
		case opWriteRequest:
			status := StatusRequestNotSupported
			if s.onWrite != nil {
				status = s.onWrite(handle, value, WriteTypeWithResponse)
			}
			if status == StatusSuccess {
				_ = s.send([]byte{opWriteResponse})
			} else {
				s.sendError(op, handle, status)
			}
		case opWriteCommand:
			if s.onWrite != nil {
				s.onWrite(handle, value, WriteTypeWithoutResponse)
			}
		default:
			if s.log != nil {
				s.log.Debugf("unsupported ATT opcode 0x%02x", op)
			}
			s.sendError(op, handle, StatusRequestNotSupported)
		}
	}
}

func (s *ServerBearer) sendError(op uint8, handle uint16, status Status) {
	pdu := []byte{opErrorResponse, op, 0, 0, byte(status)}
	binary.LittleEndian.PutUint16(pdu[2:4], handle)
	_ = s.send(pdu)
}

// Close closes the underlying connection and waits for the read loop.
func (s *ServerBearer) Close() error {
	err := s.conn.Close()
	// Unblock a read the peer will never answer.
	_ = s.conn.SetReadDeadline(time.Now())
	s.wg.Wait()
	return err
}
