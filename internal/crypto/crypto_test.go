package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"keybridge/internal/crypto"
)

var fastScrypt = crypto.ScryptParams{N: 1 << 10, R: 8, P: 1}

func keypair(t require.TestingT) (crypto.X25519Private, crypto.X25519Public) {
	priv, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	return priv, pub
}

func TestSealOpen_RoundTrip(t *testing.T) {
	senderPriv, senderPub := keypair(t)
	recipPriv, recipPub := keypair(t)

	rapid.Check(t, func(rt *rapid.T) {
		pt := rapid.SliceOf(rapid.Byte()).Draw(rt, "plaintext")

		msg, err := crypto.Seal(senderPriv, recipPub, pt)
		require.NoError(rt, err)

		h, err := crypto.ParseHeader(msg)
		require.NoError(rt, err)
		require.Equal(rt, crypto.KeyID(recipPub), h.RecipientKeyID)
		require.Equal(rt, crypto.KeyID(senderPub), h.SenderKeyID)

		got, err := crypto.Open(recipPriv, senderPub, msg)
		require.NoError(rt, err)
		require.Equal(rt, len(pt), len(got))
		if len(pt) > 0 {
			require.Equal(rt, pt, got)
		}
	})
}

func TestOpen_Tampered_Fails(t *testing.T) {
	senderPriv, senderPub := keypair(t)
	recipPriv, recipPub := keypair(t)

	msg, err := crypto.Seal(senderPriv, recipPub, []byte("hello"))
	require.NoError(t, err)
	msg[len(msg)-1] ^= 1

	_, err = crypto.Open(recipPriv, senderPub, msg)
	assert.Error(t, err)
}

func TestOpen_WrongRecipient_Fails(t *testing.T) {
	senderPriv, senderPub := keypair(t)
	_, recipPub := keypair(t)
	otherPriv, _ := keypair(t)

	msg, err := crypto.Seal(senderPriv, recipPub, []byte("hello"))
	require.NoError(t, err)

	_, err = crypto.Open(otherPriv, senderPub, msg)
	assert.ErrorIs(t, err, crypto.ErrNotForKey)
}

func TestParseHeader_Short(t *testing.T) {
	_, err := crypto.ParseHeader(make([]byte, crypto.HeaderSize))
	assert.ErrorIs(t, err, crypto.ErrMalformed)
}

func TestKeyID_NonNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var pub crypto.X25519Public
		copy(pub[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(rt, "pub"))
		if id := crypto.KeyID(pub); id < 0 {
			rt.Fatalf("negative key id %d", id)
		}
	})
}

func TestLockUnlock(t *testing.T) {
	raw := []byte("0123456789abcdef0123456789abcdef")
	blob, err := crypto.Lock([]byte("pass"), raw, fastScrypt)
	require.NoError(t, err)

	got, err := crypto.Unlock([]byte("pass"), blob)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = crypto.Unlock([]byte("wrong"), blob)
	assert.ErrorIs(t, err, crypto.ErrWrongPassphrase)
}
