package providerd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keybridge/internal/crypto"
	"keybridge/internal/domain"
	"keybridge/internal/provider"
	"keybridge/internal/providerd"
	"keybridge/internal/store"
)

var testScrypt = crypto.ScryptParams{N: 1 << 10, R: 8, P: 1}

func newServer(t *testing.T) (*providerd.Server, *httptest.Server, store.KeyRecord) {
	t.Helper()
	kr, err := providerd.OpenKeyring(nil, testScrypt)
	require.NoError(t, err)
	rec, err := kr.Generate("alice@example.com", []byte("pass"))
	require.NoError(t, err)

	srv := providerd.NewServer("org.example.provider", kr, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts, rec
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func bind(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := post(t, ts.URL+"/v1/bind", provider.BindRequest{Identity: "alice@example.com", APIVersion: provider.APIVersion})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out provider.BindResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "org.example.provider", out.ProviderID)
	require.NotEmpty(t, out.Session)
	return out.Session
}

func TestBind_WrongVersion_BadRequest(t *testing.T) {
	_, ts, _ := newServer(t)
	resp := post(t, ts.URL+"/v1/bind", provider.BindRequest{Identity: "alice@example.com", APIVersion: 99})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOps_UnknownSession_Unauthorized(t *testing.T) {
	_, ts, _ := newServer(t)
	resp := post(t, ts.URL+"/v1/ops", provider.OpRequest{Session: "nope", Kind: "connectivity_test"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOps_BadKind_BadRequest(t *testing.T) {
	_, ts, _ := newServer(t)
	session := bind(t, ts)
	resp := post(t, ts.URL+"/v1/ops", provider.OpRequest{Session: session, Kind: "sign"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOps_ConnectivityTest_KeyIDs(t *testing.T) {
	_, ts, rec := newServer(t)
	session := bind(t, ts)

	resp := post(t, ts.URL+"/v1/ops", provider.OpRequest{Session: session, Kind: "connectivity_test", Identity: "alice@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out provider.CompletionMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "success", out.Outcome)
	assert.Equal(t, []int64{rec.KeyID}, out.KeyIDs)
}

func TestInteraction_Unknown_NotFound(t *testing.T) {
	_, ts, _ := newServer(t)
	session := bind(t, ts)
	resp := post(t, ts.URL+"/v1/interactions/nope", provider.InteractionRequest{Session: session, Passphrase: "pass"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInteraction_ForeignSession_Unauthorized(t *testing.T) {
	_, ts, _ := newServer(t)
	owner := bind(t, ts)
	other := bind(t, ts)

	resp := post(t, ts.URL+"/v1/ops", provider.OpRequest{Session: owner, Kind: "encrypt", Identity: "alice@example.com", Input: []byte("x")})
	var out provider.CompletionMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "needs_interaction", out.Outcome)
	require.NotNil(t, out.Interaction)

	resp = post(t, ts.URL+"/v1/interactions/"+out.Interaction.ID, provider.InteractionRequest{Session: other, Passphrase: "pass"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRelease_DropsSession(t *testing.T) {
	srv, ts, _ := newServer(t)
	session := bind(t, ts)
	require.Equal(t, 1, srv.Sessions())

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/v1/bind/"+session, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, srv.Sessions())
}

func TestConnector_EncryptDecrypt(t *testing.T) {
	_, ts, _ := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := domain.NewSessionConfig("alice@example.com", ts.URL)
	require.NoError(t, err)
	conn, err := provider.NewConnector("", nil).Connect(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close(ctx)

	comp, err := conn.Do(ctx, domain.Operation{CorrelationID: "c-1", Kind: domain.KindEncrypt, Identity: "alice@example.com", Input: []byte("hi")})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeNeedsInteraction, comp.Outcome)

	comp, err = conn.Interact(ctx, comp.Interaction.ID, domain.InteractionResponse{Passphrase: []byte("pass")})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, comp.Outcome)
	assert.Equal(t, domain.KindEncrypt, comp.Kind)

	comp, err = conn.Do(ctx, domain.Operation{CorrelationID: "c-2", Kind: domain.KindDecrypt, Input: comp.Payload})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, comp.Outcome)
	assert.Equal(t, []byte("hi"), comp.Payload)
}

func TestConnector_EmptyPlaintext_PayloadPresent(t *testing.T) {
	_, ts, _ := newServer(t)
	ctx := context.Background()

	cfg, err := domain.NewSessionConfig("alice@example.com", ts.URL)
	require.NoError(t, err)
	conn, err := provider.NewConnector("", nil).Connect(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close(ctx)

	comp, err := conn.Do(ctx, domain.Operation{CorrelationID: "c-1", Kind: domain.KindEncrypt, Identity: "alice@example.com"})
	require.NoError(t, err)
	comp, err = conn.Interact(ctx, comp.Interaction.ID, domain.InteractionResponse{Passphrase: []byte("pass")})
	require.NoError(t, err)

	comp, err = conn.Do(ctx, domain.Operation{CorrelationID: "c-2", Kind: domain.KindDecrypt, Input: comp.Payload})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, comp.Outcome)
	assert.NotNil(t, comp.Payload)
	assert.Empty(t, comp.Payload)
}

func TestKeyring_PersistsLockedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.json")
	kr, err := providerd.OpenKeyring(store.NewKeyringFileStore(path), testScrypt)
	require.NoError(t, err)
	rec, err := kr.Generate("bob@example.com", []byte("secret"))
	require.NoError(t, err)

	reopened, err := providerd.OpenKeyring(store.NewKeyringFileStore(path), testScrypt)
	require.NoError(t, err)
	got, ok := reopened.ByID(rec.KeyID)
	require.True(t, ok)
	assert.Equal(t, rec.Public, got.Public)

	priv, err := reopened.Unlock(got, []byte("secret"))
	require.NoError(t, err)
	pub, err := crypto.PublicKey(priv)
	require.NoError(t, err)
	assert.Equal(t, crypto.X25519Public(rec.Public), pub)

	_, err = reopened.Unlock(got, []byte("guess"))
	assert.ErrorIs(t, err, crypto.ErrWrongPassphrase)
}

func TestKeyring_PrimaryIsNewest(t *testing.T) {
	kr, err := providerd.OpenKeyring(nil, testScrypt)
	require.NoError(t, err)
	_, err = kr.Generate("alice@example.com", []byte("a"))
	require.NoError(t, err)
	newest, err := kr.Generate("alice@example.com", []byte("b"))
	require.NoError(t, err)

	primary, ok := kr.Primary("alice@example.com")
	require.True(t, ok)
	assert.Equal(t, newest.KeyID, primary.KeyID)
	assert.Len(t, kr.Keys("alice@example.com"), 2)
	_, ok = kr.Primary("mallory@example.com")
	assert.False(t, ok)
}
