package network

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/axmq/mqttwire/encoding"
	"github.com/axmq/mqttwire/pkg/logger"
)

// PacketHandler processes one decoded packet from conn and returns the
// packet to reply with, if any. A nil reply means the connection-level
// protocol this packet answers to carries no response (e.g. DISCONNECT).
// Returning an error terminates the connection with TerminationProtocolError;
// PacketHandler is never called again for that connection afterward.
type PacketHandler func(ctx context.Context, conn *Connection, pkt encoding.Packet) (encoding.Packet, error)

// Server owns a Listener and drives the goroutine-per-connection read loop:
// for every accepted connection, read bytes, hand them to TryFrame, decode
// whatever frames come back, and dispatch each to Handle. This is
// deliberately the trivial model — one goroutine blocked in Read per
// connection, no epoll/kqueue poller — the teacher's network/poller_*.go
// files build for a different scale than this module targets (see
// DESIGN.md).
type Server struct {
	listener *Listener
	pool     *Pool
	tm       *TerminationManager
	log      logger.Logger

	Handle PacketHandler

	readBufSize int
}

// ServerConfig bundles the pieces Server needs beyond a PacketHandler.
type ServerConfig struct {
	Listener    *ListenerConfig
	Pool        *PoolConfig
	Logger      logger.Logger
	ReadBufSize int
}

func NewServer(cfg ServerConfig, handle PacketHandler) (*Server, error) {
	pool, err := NewPool(cfg.Pool)
	if err != nil {
		return nil, err
	}

	listener, err := NewListener(cfg.Listener, pool)
	if err != nil {
		return nil, err
	}

	readBufSize := cfg.ReadBufSize
	if readBufSize <= 0 {
		readBufSize = 4096
	}

	s := &Server{
		listener:    listener,
		pool:        pool,
		tm:          NewTerminationManager(0),
		log:         cfg.Logger,
		Handle:      handle,
		readBufSize: readBufSize,
	}

	listener.OnConnection(s.serveConnection)
	return s, nil
}

func (s *Server) Start() error { return s.listener.Start() }

func (s *Server) Addr() interface{ String() string } { return s.listener.Addr() }

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.listener.Close(); err != nil {
		return err
	}
	return NewGracefulShutdown(s.pool, s.tm, 0).Shutdown(ctx)
}

// serveConnection is the per-connection read loop registered as a
// ConnectionHandler. It accumulates bytes into buf, repeatedly asks
// TryFrame for the next complete packet, and dispatches each to Handle
// before reading more. A TryFrame/Decode failure, a Handle error, or a
// closed socket all end the loop and terminate the connection.
func (s *Server) serveConnection(conn *Connection) error {
	ctx := context.Background()
	buf := make([]byte, 0, s.readBufSize)
	chunk := make([]byte, s.readBufSize)

	defer func() {
		_ = s.pool.Remove(conn.ID())
	}()

	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)

			var reason TerminationReason
			var terminate bool
			buf, terminate, reason = s.drainFrames(ctx, conn, buf)
			if terminate {
				_ = s.tm.Terminate(ctx, conn, reason)
				return nil
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ErrConnectionClosed) {
				_ = s.tm.Terminate(ctx, conn, TerminationClientDisconnect)
				return nil
			}
			_ = s.tm.Terminate(ctx, conn, TerminationKeepAliveTimeout)
			return nil
		}
	}
}

// drainFrames extracts and dispatches every complete packet currently
// sitting in buf, returning the unconsumed remainder. Each packet's reply
// (if any) is appended to a single write buffer that is flushed with one
// Write call once the buffer is drained, so an encode is always atomic from
// the write buffer's perspective regardless of how many packets arrived in
// one read. It stops at the first incomplete frame (more bytes needed) or
// the first malformed frame, decode error, handler error, or write error
// (connection must terminate).
func (s *Server) drainFrames(ctx context.Context, conn *Connection, buf []byte) (remainder []byte, terminate bool, reason TerminationReason) {
	var writeBuf bytes.Buffer

	flush := func() (bool, TerminationReason) {
		if writeBuf.Len() == 0 {
			return false, 0
		}
		if _, werr := conn.Write(writeBuf.Bytes()); werr != nil {
			s.logf("warn", conn, "write failed: "+werr.Error())
			if errors.Is(werr, io.EOF) || errors.Is(werr, ErrConnectionClosed) {
				return true, TerminationClientDisconnect
			}
			return true, TerminationKeepAliveTimeout
		}
		return false, 0
	}

	for {
		frame, consumed, status := encoding.TryFrame(buf)
		if status == encoding.FrameIncomplete {
			if term, tr := flush(); term {
				return buf, true, tr
			}
			return buf, false, 0
		}
		if status == encoding.FrameMalformed {
			s.logf("warn", conn, "malformed fixed header")
			flush()
			return buf, true, TerminationProtocolError
		}

		pkt, _, derr := encoding.Decode(frame)
		buf = buf[consumed:]
		if derr != nil {
			s.logf("warn", conn, "decode failed: "+derr.Error())
			flush()
			return buf, true, TerminationProtocolError
		}
		if s.pool != nil {
			s.pool.RecordPacket(pkt.Type())
		}

		if s.Handle == nil {
			continue
		}

		reply, herr := s.Handle(ctx, conn, pkt)
		if herr != nil {
			flush()
			return buf, true, TerminationProtocolError
		}
		if reply == nil {
			continue
		}

		encoded, eerr := encoding.Encode(reply)
		if eerr != nil {
			s.logf("warn", conn, "reply encode failed: "+eerr.Error())
			flush()
			return buf, true, TerminationProtocolError
		}
		writeBuf.Write(encoded)
	}
}

func (s *Server) logf(level string, conn *Connection, msg string) {
	if s.log == nil {
		return
	}
	switch level {
	case "warn":
		s.log.Warn(msg, "conn_id", conn.ID())
	default:
		s.log.Info(msg, "conn_id", conn.ID())
	}
}
