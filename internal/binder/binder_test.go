package binder_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"keybridge/internal/binder"
	"keybridge/internal/domain"
	"keybridge/internal/testutil"
)

func testConfig(t require.TestingT) domain.SessionConfig {
	cfg, err := domain.NewSessionConfig("alice@example.com", "org.example.provider")
	require.NoError(t, err)
	return cfg
}

func waitReady(t interface{ Fatalf(string, ...any) }, s *binder.Session) {
	select {
	case <-s.Ready():
	case <-time.After(5 * time.Second):
		t.Fatalf("session never settled, state %s", s.State())
	}
}

func TestBind_Success_Bound(t *testing.T) {
	conn := &testutil.Connector{}
	b := binder.New(conn)

	s := b.Bind(testConfig(t))
	waitReady(t, s)

	assert.Equal(t, domain.StateBound, s.State())
	assert.Nil(t, s.LastError())
	_, err := s.Conn()
	assert.NoError(t, err)
}

func TestBind_ReturnsConnecting(t *testing.T) {
	gate := make(chan struct{})
	b := binder.New(&testutil.Connector{Gate: gate})

	s := b.Bind(testConfig(t))
	assert.Equal(t, domain.StateConnecting, s.State())
	_, err := s.Conn()
	assert.ErrorIs(t, err, domain.ErrNotBound)

	close(gate)
	waitReady(t, s)
	assert.Equal(t, domain.StateBound, s.State())
}

func TestBind_Failure_RecordsLastError(t *testing.T) {
	b := binder.New(&testutil.Connector{Err: errors.New("provider not installed")})

	s := b.Bind(testConfig(t))
	waitReady(t, s)

	require.Equal(t, domain.StateFailed, s.State())
	require.NotNil(t, s.LastError())
	assert.Equal(t, domain.ConnectionFailed, s.LastError().Kind)
	assert.Contains(t, s.LastError().Error(), "provider not installed")
}

func TestBind_HandshakeTimeout_Fails(t *testing.T) {
	b := binder.New(&testutil.Connector{Gate: make(chan struct{})}, binder.WithHandshakeTimeout(20*time.Millisecond))

	s := b.Bind(testConfig(t))
	waitReady(t, s)
	assert.Equal(t, domain.StateFailed, s.State())
	assert.ErrorIs(t, s.LastError(), domain.ErrConnectionFailed)
}

func TestUnbind_ReleasesConnection(t *testing.T) {
	connector := &testutil.Connector{}
	b := binder.New(connector)

	s := b.Bind(testConfig(t))
	waitReady(t, s)
	b.Unbind(s)
	b.Unbind(s)

	assert.Equal(t, domain.StateUnbound, s.State())
	require.Len(t, connector.Conns(), 1)
	assert.True(t, connector.Conns()[0].Closed())
	_, err := s.Conn()
	assert.ErrorIs(t, err, domain.ErrNotBound)
}

func TestUnbind_Nil_NoOp(t *testing.T) {
	binder.New(&testutil.Connector{}).Unbind(nil)
}

func TestBindUnbind_AlwaysEndsUnbound(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		fail := rapid.Bool().Draw(t, "fail")
		settle := rapid.Bool().Draw(t, "settle")
		unbinds := rapid.IntRange(1, 3).Draw(t, "unbinds")

		connector := &testutil.Connector{}
		if fail {
			connector.Err = errors.New("refused")
		}
		gate := make(chan struct{})
		if !settle {
			connector.Gate = gate
		}
		b := binder.New(connector)

		s := b.Bind(testConfig(t))
		if settle {
			waitReady(t, s)
		}
		for i := 0; i < unbinds; i++ {
			b.Unbind(s)
		}
		close(gate)

		if s.State() != domain.StateUnbound {
			t.Fatalf("state %s after unbind", s.State())
		}
		for _, c := range connector.Conns() {
			if !c.Closed() {
				t.Fatalf("connection left open")
			}
		}
	})
}
