package network

import (
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewListener_RejectsNilConfig(t *testing.T) {
	_, err := NewListener(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestListener_StartAcceptCloseLifecycle(t *testing.T) {
	cfg := DefaultListenerConfig("127.0.0.1:0")
	cfg.AcceptTimeout = 50 * time.Millisecond

	l, err := NewListener(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, l.Start())
	defer l.Close()

	accepted := make(chan *Connection, 1)
	l.OnConnection(func(conn *Connection) error {
		accepted <- conn
		return nil
	})

	client, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	select {
	case conn := <-accepted:
		require.NotNil(t, conn)
		_, err := uuid.Parse(conn.ID())
		assert.NoError(t, err, "connection ID should be a valid UUID")
	case <-time.After(2 * time.Second):
		t.Fatal("connection was never accepted")
	}

	stats := l.Stats()
	assert.Equal(t, uint64(1), stats.Accepted)

	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Start(), ErrListenerClosed)
}

func TestListener_RejectsConnectionsOverMaxConnections(t *testing.T) {
	cfg := DefaultListenerConfig("127.0.0.1:0")
	cfg.AcceptTimeout = 50 * time.Millisecond
	cfg.MaxConnections = 1

	pool, err := NewPool(&PoolConfig{MaxConnections: 1})
	require.NoError(t, err)

	l, err := NewListener(cfg, pool)
	require.NoError(t, err)
	require.NoError(t, l.Start())
	defer l.Close()

	accepted := make(chan struct{}, 4)
	l.OnConnection(func(conn *Connection) error {
		accepted <- struct{}{}
		<-conn.CloseChan()
		return nil
	})

	first, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer first.Close()

	select {
	case <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("first connection was never accepted")
	}

	second, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer second.Close()

	require.Eventually(t, func() bool {
		return l.Stats().Rejected >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListener_GenerateConnectionIDsAreUnique(t *testing.T) {
	cfg := DefaultListenerConfig("127.0.0.1:0")
	l, err := NewListener(cfg, nil)
	require.NoError(t, err)

	a := l.generateConnectionID()
	b := l.generateConnectionID()
	assert.NotEqual(t, a, b)
	_, err = uuid.Parse(a)
	assert.NoError(t, err)
}
