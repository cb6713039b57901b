package network

import (
	"context"
	"sync"
	"time"
)

// TerminationReason classifies why a connection is being closed. MQTT 3.1.1
// carries no reason byte on the wire (unlike the later protocol revision
// the teacher's DisconnectReason enumerated reason codes for) — this exists
// purely for local logging and handler dispatch, never encoded.
type TerminationReason byte

const (
	TerminationClientDisconnect TerminationReason = iota
	TerminationProtocolError
	TerminationKeepAliveTimeout
	TerminationServerShutdown
)

func (r TerminationReason) String() string {
	switch r {
	case TerminationClientDisconnect:
		return "client_disconnect"
	case TerminationProtocolError:
		return "protocol_error"
	case TerminationKeepAliveTimeout:
		return "keep_alive_timeout"
	case TerminationServerShutdown:
		return "server_shutdown"
	default:
		return "unknown"
	}
}

// TerminationHandler observes a connection's end. Handlers run
// synchronously and in registration order before the connection's socket is
// closed, mirroring axmq-ax/network/disconnect.go's DisconnectHandler
// chain.
type TerminationHandler func(*Connection, TerminationReason) error

// TerminationManager runs registered handlers before closing a connection,
// bounding the whole sequence with a timeout so one stuck handler can't
// block a graceful shutdown indefinitely.
//
// Adapted from axmq-ax/network/disconnect.go's DisconnectManager: the
// handler-chain shape and the context.WithTimeout-bounded close sequence
// are the teacher's; the MQTT5 DisconnectPacket (reason code, session
// expiry, reason string, server reference properties) is gone since 3.1.1's
// DISCONNECT carries none of it — see encoding.DisconnectPacket.
type TerminationManager struct {
	mu       sync.RWMutex
	handlers []TerminationHandler
	timeout  time.Duration
}

func NewTerminationManager(timeout time.Duration) *TerminationManager {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &TerminationManager{timeout: timeout}
}

func (tm *TerminationManager) OnTerminate(handler TerminationHandler) {
	tm.mu.Lock()
	tm.handlers = append(tm.handlers, handler)
	tm.mu.Unlock()
}

func (tm *TerminationManager) runHandlers(conn *Connection, reason TerminationReason) error {
	tm.mu.RLock()
	handlers := make([]TerminationHandler, len(tm.handlers))
	copy(handlers, tm.handlers)
	tm.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(conn, reason); err != nil {
			return err
		}
	}
	return nil
}

// Terminate runs the registered handlers and closes conn, aborting and
// forcing the close if the handlers don't finish within tm.timeout.
func (tm *TerminationManager) Terminate(ctx context.Context, conn *Connection, reason TerminationReason) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, tm.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		herr := tm.runHandlers(conn, reason)
		cerr := conn.Close()
		if herr != nil {
			done <- herr
			return
		}
		done <- cerr
	}()

	select {
	case err := <-done:
		return err
	case <-timeoutCtx.Done():
		_ = conn.Close()
		return ErrGracefulShutdownTimeout
	}
}

// GracefulShutdown terminates every connection in a pool with
// TerminationServerShutdown, bounding the whole sweep (not just each
// individual connection) with one timeout.
//
// Adapted from axmq-ax/network/disconnect.go's GracefulShutdown.
type GracefulShutdown struct {
	pool    *Pool
	tm      *TerminationManager
	timeout time.Duration

	mu       sync.Mutex
	shutdown bool
}

func NewGracefulShutdown(pool *Pool, tm *TerminationManager, timeout time.Duration) *GracefulShutdown {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &GracefulShutdown{pool: pool, tm: tm, timeout: timeout}
}

func (gs *GracefulShutdown) Shutdown(ctx context.Context) error {
	gs.mu.Lock()
	if gs.shutdown {
		gs.mu.Unlock()
		return nil
	}
	gs.shutdown = true
	gs.mu.Unlock()

	timeoutCtx, cancel := context.WithTimeout(ctx, gs.timeout)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	gs.pool.ForEach(func(conn *Connection) bool {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			if err := gs.tm.Terminate(timeoutCtx, c, TerminationServerShutdown); err != nil {
				select {
				case errCh <- err:
				default:
				}
			}
		}(conn)
		return true
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case err := <-errCh:
		return err
	case <-timeoutCtx.Done():
		return ErrGracefulShutdownTimeout
	}
}

func (gs *GracefulShutdown) IsShutdown() bool {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.shutdown
}
