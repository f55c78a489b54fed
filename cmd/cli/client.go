package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// apiError is a non-2xx response from the ledger API.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string { return fmt.Sprintf("%d: %s", e.Status, e.Message) }

type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{base: strings.TrimRight(base, "/"), http: &http.Client{Timeout: 30 * time.Second}}
}

type signInRequest struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
}

type signInResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Profile   struct {
		ID            string `json:"id"`
		WalletAddress string `json:"wallet_address"`
	} `json:"profile"`
}

type prepareRequest struct {
	Donor    string          `json:"donor"`
	NeedSlug string          `json:"need_slug"`
	Amount   decimal.Decimal `json:"amount"`
}

type prepareResponse struct {
	Transaction string `json:"transaction"`
	Vault       string `json:"vault"`
	BaseUnits   uint64 `json:"base_units"`
	Blockhash   string `json:"blockhash"`
}

type recordRequest struct {
	TxSignature   string `json:"tx_signature"`
	WalletAddress string `json:"wallet_address"`
	NeedSlug      string `json:"need_slug,omitempty"`
	Note          string `json:"note,omitempty"`
}

type donation struct {
	ID          string          `json:"id"`
	TxSignature string          `json:"tx_signature"`
	NeedSlug    *string         `json:"need_slug"`
	Amount      decimal.Decimal `json:"amount"`
	Note        *string         `json:"note"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (c *apiClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &apiError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) nonce(ctx context.Context) (string, error) {
	var out struct {
		Nonce string `json:"nonce"`
	}
	err := c.do(ctx, http.MethodPost, "/nonce", "", nil, &out)
	return out.Nonce, err
}

func (c *apiClient) signIn(ctx context.Context, in signInRequest) (signInResponse, error) {
	var out signInResponse
	err := c.do(ctx, http.MethodPost, "/siws-verify", "", in, &out)
	return out, err
}

func (c *apiClient) prepare(ctx context.Context, in prepareRequest) (prepareResponse, error) {
	var out prepareResponse
	err := c.do(ctx, http.MethodPost, "/donations/prepare", "", in, &out)
	return out, err
}

func (c *apiClient) record(ctx context.Context, token string, in recordRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/record-transaction", token, in, &out)
	return out.ID, err
}

// recordWhenFinal retries while the ledger reports the transaction as not yet
// finalized (404) and stops on any other outcome or when ctx ends.
func (c *apiClient) recordWhenFinal(ctx context.Context, token string, in recordRequest, every time.Duration) (string, error) {
	for {
		id, err := c.record(ctx, token, in)
		var ae *apiError
		if err == nil || !errors.As(err, &ae) || ae.Status != http.StatusNotFound {
			return id, err
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("transaction not finalized: %w", ctx.Err())
		case <-time.After(every):
		}
	}
}

func (c *apiClient) history(ctx context.Context, token string) ([]donation, error) {
	var out struct {
		Transactions []donation `json:"transactions"`
	}
	err := c.do(ctx, http.MethodGet, "/transactions", token, nil, &out)
	return out.Transactions, err
}
