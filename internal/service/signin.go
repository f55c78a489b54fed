package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/glimpsegive/glimpse-ledger/internal/auth"
	"github.com/glimpsegive/glimpse-ledger/internal/errs"
	"github.com/glimpsegive/glimpse-ledger/internal/limiter"
	"github.com/glimpsegive/glimpse-ledger/internal/metrics"
	"github.com/glimpsegive/glimpse-ledger/internal/model"
	"github.com/glimpsegive/glimpse-ledger/internal/nonce"
	"github.com/glimpsegive/glimpse-ledger/internal/repository"
)

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	Issue(p model.Profile) (model.Tokens, error)
}

// SignInService issues sign-in nonces and exchanges signed sign-in messages
// for session tokens.
type SignInService struct {
	nonces   nonce.Store
	nonceTTL time.Duration
	lim      limiter.Limiter
	profiles repository.ProfileRepository
	issuer   TokenIssuer
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewSignInService constructs SignInService. m may be nil.
func NewSignInService(
	nonces nonce.Store, nonceTTL time.Duration, lim limiter.Limiter,
	profiles repository.ProfileRepository, issuer TokenIssuer, m *metrics.Metrics, log *zap.Logger,
) *SignInService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SignInService{
		nonces: nonces, nonceTTL: nonceTTL, lim: lim,
		profiles: profiles, issuer: issuer, metrics: m, log: log,
	}
}

// IssueNonce stores and returns a fresh single-use nonce.
func (s *SignInService) IssueNonce(ctx context.Context) (string, error) {
	n, err := nonce.Generate()
	if err != nil {
		return "", err
	}
	if err := s.nonces.Put(ctx, n, s.nonceTTL); err != nil {
		return "", err
	}
	return n, nil
}

// SignIn verifies a signed sign-in message, consumes its nonce and returns a
// session token with the wallet's profile. Failures are throttled per (wallet, ip).
func (s *SignInService) SignIn(ctx context.Context, in auth.SignIn, ip string) (model.Tokens, model.Profile, error) {
	tokens, p, err := s.signIn(ctx, in, ip)
	if s.metrics != nil {
		s.metrics.SignIns.WithLabelValues(signInOutcome(err)).Inc()
	}
	return tokens, p, err
}

func (s *SignInService) signIn(ctx context.Context, in auth.SignIn, ip string) (model.Tokens, model.Profile, error) {
	wallet, err := auth.WalletFromPublicKey(in.PublicKey)
	if err != nil {
		return model.Tokens{}, model.Profile{}, err
	}
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, wallet, ipHash)
	if err != nil {
		return model.Tokens{}, model.Profile{}, err
	}
	if !allowed {
		return model.Tokens{}, model.Profile{}, errs.ErrRateLimited
	}

	msg, err := auth.VerifySignIn(in)
	if err == nil {
		err = s.nonces.Consume(ctx, msg.Nonce)
	}
	if err != nil {
		if errors.Is(err, errs.ErrBadSignature) || errors.Is(err, errs.ErrNonceInvalid) {
			if blocked, _, ferr := s.lim.Failure(ctx, wallet, ipHash); ferr == nil && blocked {
				return model.Tokens{}, model.Profile{}, errs.ErrRateLimited
			}
		}
		return model.Tokens{}, model.Profile{}, err
	}

	// Success: reset counters (best-effort).
	if err := s.lim.Success(ctx, wallet, ipHash); err != nil {
		s.log.Warn("limiter reset", zap.Error(err))
	}

	p, err := s.profiles.UpsertByWallet(ctx, msg.Wallet)
	if err != nil {
		return model.Tokens{}, model.Profile{}, err
	}
	tokens, err := s.issuer.Issue(*p)
	if err != nil {
		return model.Tokens{}, model.Profile{}, err
	}
	s.log.Info("signed in", zap.String("wallet", msg.Wallet), zap.String("profile", p.ID.String()))
	return tokens, *p, nil
}

func signInOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, errs.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, errs.ErrNonceInvalid):
		return "bad_nonce"
	case errors.Is(err, errs.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
