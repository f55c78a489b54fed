package auth

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/nacl/sign"

	"github.com/glimpsegive/glimpse-ledger/internal/errs"
)

// SignIn is a wallet sign-in submission; every field is standard base64.
type SignIn struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
}

// SignedMessage is a sign-in message whose signature checked out.
type SignedMessage struct {
	Wallet string
	Nonce  string
	Text   string
}

var (
	nonceLine   = regexp.MustCompile(`(?i)Nonce:\s*(.+)`)
	addressLine = regexp.MustCompile(`(?m)^Address:\s*([1-9A-HJ-NP-Za-km-z]{32,44})\s*$`)
	headerLine  = regexp.MustCompile(`(?m)^([1-9A-HJ-NP-Za-km-z]{32,44})\s+wants to sign in`)
)

// VerifySignIn checks the detached ed25519 signature over the message and
// extracts the wallet and nonce. The wallet is the base58 form of the key;
// an address stated in the message must agree with it.
func VerifySignIn(in SignIn) (SignedMessage, error) {
	if in.Message == "" || in.Signature == "" || in.PublicKey == "" {
		return SignedMessage{}, fmt.Errorf("%w: message, signature and publicKey are required", errs.ErrValidation)
	}
	msg, err := base64.StdEncoding.DecodeString(in.Message)
	if err != nil {
		return SignedMessage{}, fmt.Errorf("%w: message is not base64", errs.ErrValidation)
	}
	sig, err := base64.StdEncoding.DecodeString(in.Signature)
	if err != nil {
		return SignedMessage{}, fmt.Errorf("%w: signature is not base64", errs.ErrValidation)
	}
	pub, err := base64.StdEncoding.DecodeString(in.PublicKey)
	if err != nil {
		return SignedMessage{}, fmt.Errorf("%w: publicKey is not base64", errs.ErrValidation)
	}
	if len(pub) != 32 {
		return SignedMessage{}, fmt.Errorf("%w: invalid public key length", errs.ErrValidation)
	}
	if len(sig) != sign.Overhead {
		return SignedMessage{}, fmt.Errorf("%w: invalid signature length", errs.ErrValidation)
	}

	var key [32]byte
	copy(key[:], pub)
	signed := make([]byte, 0, len(sig)+len(msg))
	signed = append(append(signed, sig...), msg...)
	if _, ok := sign.Open(nil, signed, &key); !ok {
		return SignedMessage{}, errs.ErrBadSignature
	}

	text := string(msg)
	wallet := base58.Encode(pub)
	if stated := statedAddress(text); stated != "" && stated != wallet {
		return SignedMessage{}, fmt.Errorf("%w: message address does not match key", errs.ErrBadSignature)
	}

	m := nonceLine.FindStringSubmatch(text)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return SignedMessage{}, fmt.Errorf("%w: no nonce found in message", errs.ErrValidation)
	}

	return SignedMessage{Wallet: wallet, Nonce: strings.TrimSpace(m[1]), Text: text}, nil
}

func statedAddress(text string) string {
	if m := headerLine.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := addressLine.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// WalletFromPublicKey returns the base58 wallet address for a base64 ed25519 key.
func WalletFromPublicKey(b64 string) (string, error) {
	pub, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || len(pub) != 32 {
		return "", fmt.Errorf("%w: invalid public key", errs.ErrValidation)
	}
	return base58.Encode(pub), nil
}
