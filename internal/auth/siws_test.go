package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/sign"

	"github.com/glimpsegive/glimpse-ledger/internal/errs"
)

type signer struct {
	pub  *[32]byte
	priv *[64]byte
}

func newSigner(t *testing.T) signer {
	t.Helper()
	pub, priv, err := sign.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return signer{pub: pub, priv: priv}
}

func (s signer) wallet() string { return base58.Encode(s.pub[:]) }

func (s signer) signIn(msg string) SignIn {
	signed := sign.Sign(nil, []byte(msg), s.priv)
	return SignIn{
		Message:   base64.StdEncoding.EncodeToString([]byte(msg)),
		Signature: base64.StdEncoding.EncodeToString(signed[:sign.Overhead]),
		PublicKey: base64.StdEncoding.EncodeToString(s.pub[:]),
	}
}

func siwsMessage(wallet, nonce string) string {
	return fmt.Sprintf("glimpse.give wants to sign in with your Solana account:\n%s\n\nAddress: %s\nNonce: %s\nIssued At: 2026-01-01T00:00:00Z", wallet, wallet, nonce)
}

func TestVerifySignIn_OK(t *testing.T) {
	s := newSigner(t)
	got, err := VerifySignIn(s.signIn(siwsMessage(s.wallet(), "abc123==")))
	require.NoError(t, err)
	require.Equal(t, s.wallet(), got.Wallet)
	require.Equal(t, "abc123==", got.Nonce)
}

func TestVerifySignIn_HeaderStyleAddress(t *testing.T) {
	s := newSigner(t)
	msg := s.wallet() + " wants to sign in with glimpse.give\n\nNonce: n1"
	got, err := VerifySignIn(s.signIn(msg))
	require.NoError(t, err)
	require.Equal(t, "n1", got.Nonce)
}

func TestVerifySignIn_TamperedMessage(t *testing.T) {
	s := newSigner(t)
	in := s.signIn(siwsMessage(s.wallet(), "n1"))
	in.Message = base64.StdEncoding.EncodeToString([]byte(siwsMessage(s.wallet(), "n2")))

	_, err := VerifySignIn(in)
	require.ErrorIs(t, err, errs.ErrBadSignature)
}

func TestVerifySignIn_AddressMustMatchKey(t *testing.T) {
	s, other := newSigner(t), newSigner(t)
	_, err := VerifySignIn(s.signIn(siwsMessage(other.wallet(), "n1")))
	require.ErrorIs(t, err, errs.ErrBadSignature)
}

func TestVerifySignIn_Validation(t *testing.T) {
	s := newSigner(t)
	good := s.signIn(siwsMessage(s.wallet(), "n1"))

	short := good
	short.PublicKey = base64.StdEncoding.EncodeToString(s.pub[:31])

	badSig := good
	badSig.Signature = base64.StdEncoding.EncodeToString([]byte("short"))

	notB64 := good
	notB64.Signature = "%%%"

	tests := []struct {
		name string
		in   SignIn
	}{
		{"empty", SignIn{}},
		{"key length", short},
		{"signature length", badSig},
		{"not base64", notB64},
		{"no nonce", s.signIn("Address: " + s.wallet())},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := VerifySignIn(tc.in)
			require.ErrorIs(t, err, errs.ErrValidation)
		})
	}
}
