package httpserver

import (
	"errors"
	"net/http"

	"github.com/glimpsegive/glimpse-ledger/internal/chain"
	"github.com/glimpsegive/glimpse-ledger/internal/errs"
)

// errorStatus maps domain errors to HTTP statuses. message overrides the
// error text when set; otherwise the (client-safe) error text is returned.
var errorStatus = []struct {
	target  error
	status  int
	message string
}{
	{errs.ErrValidation, http.StatusBadRequest, ""},
	{errs.ErrMissingToken, http.StatusUnauthorized, ""},
	{errs.ErrInvalidToken, http.StatusUnauthorized, "invalid or expired token"},
	{errs.ErrWalletMismatch, http.StatusForbidden, ""},
	{errs.ErrTxNotFound, http.StatusNotFound, ""},
	{errs.ErrTxFailed, http.StatusUnprocessableEntity, ""},
	{errs.ErrNotSigner, http.StatusForbidden, ""},
	{errs.ErrAmountIndeterminate, http.StatusUnprocessableEntity, ""},
	{errs.ErrUnknownNeed, http.StatusBadRequest, ""},
	{errs.ErrDestinationMismatch, http.StatusBadRequest, ""},
	{errs.ErrAlreadyExists, http.StatusConflict, "transaction already recorded"},
	{errs.ErrRecordingFailed, http.StatusInternalServerError, ""},
	{errs.ErrBadSignature, http.StatusUnauthorized, ""},
	{errs.ErrNonceInvalid, http.StatusUnauthorized, ""},
	{errs.ErrRateLimited, http.StatusTooManyRequests, "too many failed sign-in attempts; try again later"},
}

// statusFor classifies err. Unknown errors are 500 with a generic message.
func statusFor(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.target) {
			if e.message != "" {
				return e.status, e.message
			}
			return e.status, err.Error()
		}
	}
	var fe *chain.FetchError
	if errors.As(err, &fe) {
		return http.StatusBadGateway, "chain RPC unavailable"
	}
	return http.StatusInternalServerError, "internal error"
}
