package delegation_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keybridge/internal/config"
	"keybridge/internal/correlate"
	"keybridge/internal/crypto"
	"keybridge/internal/delegation"
	"keybridge/internal/domain"
	"keybridge/internal/logger"
	"keybridge/internal/provider"
	"keybridge/internal/providerd"
	"keybridge/internal/testutil"
)

const (
	alice      = "alice@example.com"
	passphrase = "correct horse"
)

var testScrypt = crypto.ScryptParams{N: 1 << 10, R: 8, P: 1}

type fixture struct {
	dc        *delegation.Context
	followUps testutil.FollowUps
	server    *providerd.Server
}

// newFixture opens a delegation context against a reference provider
// holding one key for alice.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	kr, err := providerd.OpenKeyring(nil, testScrypt)
	require.NoError(t, err)
	_, err = kr.Generate(alice, []byte(passphrase))
	require.NoError(t, err)

	srv := providerd.NewServer("org.example.provider", kr, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg, err := domain.NewSessionConfig(alice, ts.URL)
	require.NoError(t, err)

	f := &fixture{followUps: make(testutil.FollowUps, 4), server: srv}
	f.dc, err = delegation.Open(delegation.Options{
		Config:     cfg,
		Connector:  provider.NewConnector(t.TempDir(), nil),
		Interactor: f.followUps,
	})
	require.NoError(t, err)
	t.Cleanup(func() { f.dc.Close() })

	s, err := f.dc.GetSession(ctx(t))
	require.NoError(t, err)
	require.Equal(t, domain.StateBound, s.State())
	return f
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

func (f *fixture) nextFollowUp(t *testing.T) domain.FollowUp {
	t.Helper()
	select {
	case fu := <-f.followUps:
		return fu
	case <-time.After(10 * time.Second):
		t.Fatal("no follow-up launched")
		return domain.FollowUp{}
	}
}

// answer runs fu against the provider and forwards the result, as the UI
// collaborator would.
func (f *fixture) answer(t *testing.T, fu domain.FollowUp, resp domain.InteractionResponse) {
	t.Helper()
	comp, err := f.dc.Interact(ctx(t), fu, resp)
	require.NoError(t, err)
	require.NoError(t, f.dc.OnExternalResult(fu.CorrelationID, fu.Kind, comp))
}

func TestEncrypt_NeedsInteraction_ThenSucceeds(t *testing.T) {
	f := newFixture(t)

	req, err := f.dc.Encrypt(ctx(t), []byte("attack at dawn"))
	require.NoError(t, err)

	fu := f.nextFollowUp(t)
	assert.Equal(t, req.CorrelationID(), fu.CorrelationID)
	assert.Equal(t, domain.RequestCodeEncrypt, fu.RequestCode)
	assert.Contains(t, fu.Interaction.Prompt, alice)
	assert.Equal(t, domain.StatusPending, req.Status())

	f.answer(t, fu, domain.InteractionResponse{Passphrase: []byte(passphrase)})

	status, err := req.Wait(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, status)
	ciphertext := req.Payload()
	assert.Greater(t, len(ciphertext), crypto.HeaderSize)

	// the unlocked key is cached for the session
	dec, err := f.dc.Decrypt(ctx(t), ciphertext)
	require.NoError(t, err)
	status, err = dec.Wait(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, status)
	assert.Equal(t, []byte("attack at dawn"), dec.Payload())
}

func TestEncrypt_UserCancels(t *testing.T) {
	f := newFixture(t)

	req, err := f.dc.Encrypt(ctx(t), []byte("x"))
	require.NoError(t, err)
	f.answer(t, f.nextFollowUp(t), domain.InteractionResponse{Cancel: true})

	status, err := req.Wait(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, status)
	assert.Nil(t, req.Payload())
}

func TestEncrypt_WrongPassphrase_Reprompts(t *testing.T) {
	f := newFixture(t)

	req, err := f.dc.Encrypt(ctx(t), []byte("x"))
	require.NoError(t, err)

	first := f.nextFollowUp(t)
	f.answer(t, first, domain.InteractionResponse{Passphrase: []byte("wrong")})

	second := f.nextFollowUp(t)
	assert.Equal(t, first.CorrelationID, second.CorrelationID)
	assert.Contains(t, second.Interaction.Prompt, "Wrong passphrase")
	assert.Equal(t, domain.StatusPending, req.Status())

	f.answer(t, second, domain.InteractionResponse{Passphrase: []byte(passphrase)})
	status, err := req.Wait(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, status)
}

func TestEncrypt_TooManyWrongPassphrases_Fails(t *testing.T) {
	f := newFixture(t)

	req, err := f.dc.Encrypt(ctx(t), []byte("x"))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		f.answer(t, f.nextFollowUp(t), domain.InteractionResponse{Passphrase: []byte("wrong")})
	}

	status, err := req.Wait(ctx(t))
	assert.Equal(t, domain.StatusFailed, status)
	assert.ErrorIs(t, err, domain.ErrProviderError)
}

func TestConnectivityTest_ListsKeys(t *testing.T) {
	f := newFixture(t)

	req, err := f.dc.TestConnectivity(ctx(t))
	require.NoError(t, err)
	status, err := req.Wait(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, status)
	assert.Len(t, req.KeyIDs(), 1)
}

func TestDecrypt_Garbage_ProviderError(t *testing.T) {
	f := newFixture(t)

	req, err := f.dc.Decrypt(ctx(t), []byte("not a message"))
	require.NoError(t, err)
	status, err := req.Wait(ctx(t))
	assert.Equal(t, domain.StatusFailed, status)
	assert.ErrorIs(t, err, domain.ErrProviderError)
}

func TestOnExternalResult_NilCompletion_EmptyResponse(t *testing.T) {
	f := newFixture(t)

	req, err := f.dc.Encrypt(ctx(t), []byte("x"))
	require.NoError(t, err)
	fu := f.nextFollowUp(t)
	require.NoError(t, f.dc.OnExternalResult(fu.CorrelationID, fu.Kind, nil))

	status, err := req.Wait(ctx(t))
	assert.Equal(t, domain.StatusFailed, status)
	assert.ErrorIs(t, err, domain.ErrEmptyResponse)
}

func TestClose_ReleasesProviderSession(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, 1, f.server.Sessions())

	s := f.dc.Session()
	require.NoError(t, f.dc.Close())
	assert.Equal(t, domain.StateUnbound, s.State())
	assert.Zero(t, f.server.Sessions())

	_, err := f.dc.Encrypt(ctx(t), []byte("x"))
	assert.ErrorIs(t, err, domain.ErrClosed)
	assert.ErrorIs(t, f.dc.OnExternalResult("id", domain.KindEncrypt, nil), domain.ErrClosed)
}

func TestClose_AbortsPending(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	connector := &testutil.Connector{
		Reply: func(domain.Operation) (*domain.Completion, error) {
			<-block
			return nil, context.Canceled
		},
	}
	cfg, err := domain.NewSessionConfig(alice, "org.example.provider")
	require.NoError(t, err)
	dc, err := delegation.Open(delegation.Options{Config: cfg, Connector: connector, Eager: true})
	require.NoError(t, err)

	_, err = dc.GetSession(ctx(t))
	require.NoError(t, err)
	req, err := dc.Encrypt(ctx(t), []byte("x"))
	require.NoError(t, err)

	require.NoError(t, dc.Close())
	status, err := req.Wait(ctx(t))
	assert.Equal(t, domain.StatusFailed, status)
	assert.ErrorIs(t, err, domain.ErrConnectionFailed)
	assert.True(t, connector.Conns()[0].Closed())
}

func TestDispatch_BeforeSession_NotBound(t *testing.T) {
	cfg, err := domain.NewSessionConfig(alice, "")
	require.NoError(t, err)
	dc, err := delegation.Open(delegation.Options{Config: cfg, Connector: &testutil.Connector{}})
	require.NoError(t, err)
	defer dc.Close()

	req, err := dc.TestConnectivity(ctx(t))
	assert.Nil(t, req)
	assert.ErrorIs(t, err, domain.ErrNotBound)
}

func TestOpen_EagerBinds(t *testing.T) {
	cfg, err := domain.NewSessionConfig(alice, "")
	require.NoError(t, err)
	connector := &testutil.Connector{}
	dc, err := delegation.Open(delegation.Options{Config: cfg, Connector: connector, Eager: true})
	require.NoError(t, err)
	defer dc.Close()

	require.NotNil(t, dc.Session())
	<-dc.Session().Ready()
	assert.Equal(t, 1, connector.Connects())
}

func TestOpen_NoIdentity_Fails(t *testing.T) {
	_, err := delegation.Open(delegation.Options{Connector: &testutil.Connector{}})
	assert.ErrorIs(t, err, domain.ErrNoIdentity)
}

func TestReconnect_BindsAgain(t *testing.T) {
	cfg, err := domain.NewSessionConfig(alice, "")
	require.NoError(t, err)
	connector := &testutil.Connector{}
	dc, err := delegation.Open(delegation.Options{Config: cfg, Connector: connector})
	require.NoError(t, err)
	defer dc.Close()

	first, err := dc.GetSession(ctx(t))
	require.NoError(t, err)
	dc.Reconnect()
	second, err := dc.GetSession(ctx(t))
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, domain.StateUnbound, first.State())
	assert.Equal(t, domain.StateBound, second.State())
}

func TestClose_RacingCallers_NothingLeftPending(t *testing.T) {
	cfg, err := domain.NewSessionConfig(alice, "")
	require.NoError(t, err)
	connector := &testutil.Connector{}
	dc, err := delegation.Open(delegation.Options{Config: cfg, Connector: connector})
	require.NoError(t, err)
	_, err = dc.GetSession(ctx(t))
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		reqs []*correlate.OutstandingRequest
	)
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				req, err := dc.TestConnectivity(context.Background())
				if err != nil {
					return
				}
				mu.Lock()
				reqs = append(reqs, req)
				mu.Unlock()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := dc.GetSession(context.Background()); err != nil {
					return
				}
				dc.Reconnect()
			}
		}()
	}
	require.NoError(t, dc.Close())
	wg.Wait()

	for _, req := range reqs {
		status, _ := req.Wait(ctx(t))
		assert.True(t, status.Terminal(), "request %s left %s", req.CorrelationID(), status)
	}
	for _, conn := range connector.Conns() {
		assert.True(t, conn.Closed(), "connection left open after close")
	}
}

func TestOpen_ProviderLoggedOncePerRecord(t *testing.T) {
	var buf bytes.Buffer
	cfg, err := domain.NewSessionConfig(alice, "org.example.provider")
	require.NoError(t, err)
	dc, err := delegation.Open(delegation.Options{
		Config:    cfg,
		Connector: &testutil.Connector{},
		Logger:    logger.NewConsoleLogger(config.LogLevelDebug, &buf),
	})
	require.NoError(t, err)

	_, err = dc.GetSession(ctx(t))
	require.NoError(t, err)
	require.NoError(t, dc.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Equal(t, 1, strings.Count(line, "provider=org.example.provider"), line)
	}
}
