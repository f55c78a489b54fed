package httpserver

import (
	"net"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/glimpsegive/glimpse-ledger/internal/auth"
	"github.com/glimpsegive/glimpse-ledger/internal/model"
	"github.com/glimpsegive/glimpse-ledger/internal/service"
)

// recordRequest is the submission body. Any amount field sent by the client
// is accepted and dropped; the amount is always read from the chain.
type recordRequest struct {
	TxSignature   string  `json:"tx_signature"`
	WalletAddress string  `json:"wallet_address"`
	NeedSlug      *string `json:"need_slug"`
	Note          *string `json:"note"`
}

type recordResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type transactionView struct {
	ID            string          `json:"id"`
	TxSignature   string          `json:"tx_signature"`
	WalletAddress string          `json:"wallet_address"`
	NeedSlug      *string         `json:"need_slug"`
	Amount        decimal.Decimal `json:"amount"`
	Note          *string         `json:"note"`
	CreatedAt     time.Time       `json:"created_at"`
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

type profileView struct {
	ID            string  `json:"id"`
	WalletAddress string  `json:"wallet_address"`
	DisplayName   *string `json:"display_name"`
	AvatarURL     *string `json:"avatar_url"`
}

type signInResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Profile   profileView `json:"profile"`
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	claim := model.Claim{TxSignature: req.TxSignature, WalletAddress: req.WalletAddress}
	if req.NeedSlug != nil {
		claim.NeedSlug = *req.NeedSlug
	}
	if req.Note != nil {
		claim.Note = *req.Note
	}

	rec, err := s.donations.Record(r.Context(), r.Header.Get("Authorization"), claim)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, recordResponse{Success: true, ID: rec.ID.String()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	rows, err := s.donations.History(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]transactionView, 0, len(rows))
	for _, t := range rows {
		out = append(out, transactionView{
			ID:            t.ID.String(),
			TxSignature:   t.TxSignature,
			WalletAddress: t.WalletAddress,
			NeedSlug:      t.NeedSlug,
			Amount:        t.Amount,
			Note:          t.Note,
			CreatedAt:     t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	var req prepareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.donations.Prepare(r.Context(), service.PrepareRequest{
		Donor:    req.Donor,
		NeedSlug: req.NeedSlug,
		Amount:   req.Amount,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prepareResponse{
		Transaction: p.Transaction,
		Vault:       p.Vault,
		BaseUnits:   p.BaseUnits,
		Blockhash:   p.Blockhash,
	})
}

func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	n, err := s.signin.IssueNonce(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"nonce": n})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req auth.SignIn
	if !decodeJSON(w, r, &req) {
		return
	}
	tok, prof, err := s.signin.SignIn(r.Context(), req, clientIP(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, signInResponse{
		Token:     tok.AccessToken,
		ExpiresAt: tok.ExpiresAt,
		Profile: profileView{
			ID:            prof.ID.String(),
			WalletAddress: prof.WalletAddress,
			DisplayName:   prof.DisplayName,
			AvatarURL:     prof.AvatarURL,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.log.Warn("health: storage unreachable", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// fail writes the classified error. Server-side failures are logged with the
// underlying cause, which never reaches the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Error(err),
		)
	}
	writeError(w, status, msg)
}

// clientIP uses the socket peer only; forwarding headers are not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
