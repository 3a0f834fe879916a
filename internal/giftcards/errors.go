package giftcards

import (
	"errors"
	"fmt"

	"github.com/tirthgodhni98/giftcard-api/internal/ledger"
	"github.com/tirthgodhni98/giftcard-api/internal/shops"
	"github.com/tirthgodhni98/giftcard-api/pkg/common"
	"github.com/tirthgodhni98/giftcard-api/pkg/resilience"
)

// ErrCardNotFound is returned by the repository when no mirror row matches
var ErrCardNotFound = errors.New("gift card not found")

// MirrorStaleReason marks a response whose remote change is not yet mirrored
const MirrorStaleReason = "MIRROR_STALE"

// InconsistencyError reports a partial success: the ledger confirmed the
// change but the mirror could not record it. Card holds the remote-derived
// state.
type InconsistencyError struct {
	Op   string
	Card *GiftCard
	Err  error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s succeeded remotely but the mirror for %s was not updated: %v", e.Op, e.Card.ID, e.Err)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }

// toAppError converts a failed ledger or shop call into the error reported to
// callers. The cause stays reachable through errors.As.
func toAppError(err error) error {
	var (
		appErr      *common.AppError
		userErrs    *ledger.UserErrorsError
		transport   *ledger.TransportError
		protocolErr *ledger.ProtocolError
	)

	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, shops.ErrShopNotFound):
		return common.NewNotFoundError("shop not found", err)
	case errors.Is(err, ledger.ErrInvalidVariables):
		return common.NewBadRequestError(err.Error(), err)
	case errors.As(err, &userErrs):
		return common.NewUnprocessableError("gift card ledger rejected the request", err).WithDetails(userErrs.Errors)
	case errors.Is(err, resilience.ErrCircuitOpen):
		appErr = common.NewServiceUnavailableError("gift card ledger is temporarily unavailable")
		appErr.Err = err
		return appErr
	case errors.As(err, &transport), errors.As(err, &protocolErr):
		return common.NewBadGatewayError("gift card ledger request failed", err)
	default:
		return common.NewInternalError("gift card operation failed", err)
	}
}
