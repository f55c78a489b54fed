package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/glimpsegive/glimpse-ledger/internal/auth"
	"github.com/glimpsegive/glimpse-ledger/internal/escrow"
)

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "glimpse")
}

func Test_cfgDir_And_Paths(t *testing.T) {
	base := withTmpConfig(t)
	require.Equal(t, base, cfgDir())
	require.True(t, strings.HasPrefix(tokenPath(), base))
	require.True(t, strings.HasSuffix(tokenPath(), "token.json"))
}

func Test_token_SaveLoad(t *testing.T) {
	_ = withTmpConfig(t)

	_, err := loadToken()
	require.Error(t, err, "missing token file")

	require.NoError(t, saveToken(tokenFile{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Minute), Wallet: "W"}))
	tf, err := loadToken()
	require.NoError(t, err)
	require.Equal(t, "tok", tf.AccessToken)
	require.Equal(t, "W", tf.Wallet)

	st, err := os.Stat(tokenPath())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	require.NoError(t, saveToken(tokenFile{AccessToken: "old", ExpiresAt: time.Now().Add(-time.Minute)}))
	_, err = loadToken()
	require.Error(t, err, "expired token")
}

func Test_signIn_ProducesVerifiableMessage(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	var got auth.SignedMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/nonce":
			_ = json.NewEncoder(w).Encode(map[string]string{"nonce": "bm9uY2UtMQ=="})
		case "/siws-verify":
			var in auth.SignIn
			_ = json.NewDecoder(r.Body).Decode(&in)
			sm, err := auth.VerifySignIn(in)
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			got = sm
			_ = json.NewEncoder(w).Encode(map[string]any{
				"token":      "tok",
				"expires_at": time.Now().Add(time.Hour),
				"profile":    map[string]string{"id": "p1", "wallet_address": sm.Wallet},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tf, err := signIn(context.Background(), newAPIClient(srv.URL), key)
	require.NoError(t, err)
	require.Equal(t, "tok", tf.AccessToken)
	require.Equal(t, key.PublicKey().String(), tf.Wallet)
	require.Equal(t, "bm9uY2UtMQ==", got.Nonce)
}

func Test_signPrepared(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	b := &escrow.Builder{Mint: escrow.DevnetUSDCMint, Decimals: escrow.USDCDecimals, Vaults: escrow.NewDirectory(escrow.DefaultProgramID)}
	plan, err := b.BuildDonateTransaction(key.PublicKey(), "groceries", decimal.NewFromInt(5), solana.Hash{1, 2, 3})
	require.NoError(t, err)
	raw, err := escrow.MarshalUnsigned(plan.Tx)
	require.NoError(t, err)
	prep := prepareResponse{
		Transaction: base64.StdEncoding.EncodeToString(raw),
		Vault:       plan.Vault.Address.String(),
		BaseUnits:   plan.BaseUnits,
	}

	tx, err := signPrepared(prep, key)
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 1)
	require.NoError(t, tx.VerifySignatures())

	other, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	_, err = signPrepared(prep, other)
	require.Error(t, err)
}

func Test_signPrepared_RejectsMismatchedPlan(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	b := &escrow.Builder{Mint: escrow.DevnetUSDCMint, Decimals: escrow.USDCDecimals, Vaults: escrow.NewDirectory(escrow.DefaultProgramID)}
	plan, err := b.BuildDonateTransaction(key.PublicKey(), "groceries", decimal.NewFromInt(5), solana.Hash{1})
	require.NoError(t, err)
	raw, err := escrow.MarshalUnsigned(plan.Tx)
	require.NoError(t, err)
	b64 := base64.StdEncoding.EncodeToString(raw)

	_, err = signPrepared(prepareResponse{Transaction: b64, Vault: plan.Vault.Address.String(), BaseUnits: 500_000_000}, key)
	require.ErrorContains(t, err, "base units")

	_, err = signPrepared(prepareResponse{Transaction: b64, Vault: escrow.SeedVaults[0].Address.String(), BaseUnits: plan.BaseUnits}, key)
	require.ErrorContains(t, err, "vault")
}

func Test_recordWhenFinal_RetriesNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "transaction not found or not yet confirmed"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "id": "row-1"})
	}))
	defer srv.Close()

	id, err := newAPIClient(srv.URL).recordWhenFinal(context.Background(), "tok", recordRequest{TxSignature: "SIG1"}, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, "row-1", id)
	require.EqualValues(t, 3, calls.Load())
}

func Test_recordWhenFinal_StopsOnConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "transaction already recorded"})
	}))
	defer srv.Close()

	_, err := newAPIClient(srv.URL).recordWhenFinal(context.Background(), "tok", recordRequest{TxSignature: "SIG1"}, time.Millisecond)
	var ae *apiError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, http.StatusConflict, ae.Status)
	require.Equal(t, "transaction already recorded", ae.Message)
}

func Test_history(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"transactions":[{"id":"a","tx_signature":"SIG1","need_slug":"groceries","amount":"100","note":null,"created_at":"2026-03-01T12:00:00Z"}]}`))
	}))
	defer srv.Close()

	rows, err := newAPIClient(srv.URL + "/").history(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "100", rows[0].Amount.String())
	require.Equal(t, "groceries", *rows[0].NeedSlug)
}
