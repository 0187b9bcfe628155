package errors

import "errors"

// Error kinds. Every specific error below matches exactly one kind via errors.Is.
var (
	ErrValidation            = errors.New("validation error")
	ErrStateConflict         = errors.New("state conflict")
	ErrNotFound              = errors.New("not found")
	ErrAuth                  = errors.New("authentication error")
	ErrSelfDealingNotAllowed = errors.New("lender and borrower must differ")
	ErrForbidden             = errors.New("forbidden")
)

var (
	ErrInvalidAmount  = newKindError(ErrValidation, "invalid amount")
	ErrInvalidTerm    = newKindError(ErrValidation, "invalid term")
	ErrInvalidRate    = newKindError(ErrValidation, "invalid interest rate")
	ErrAmountMismatch = newKindError(ErrValidation, "repayment amount does not match outstanding balance")

	ErrAlreadyFunded = newKindError(ErrStateConflict, "loan already funded")
	ErrInvalidState  = newKindError(ErrStateConflict, "operation not allowed in current loan state")
	ErrAlreadyExists = newKindError(ErrStateConflict, "already exists")

	ErrInvalidCredentials   = newKindError(ErrAuth, "invalid credentials")
	ErrProviderUnavailable  = newKindError(ErrAuth, "wallet provider unavailable")
	ErrUserRejected         = newKindError(ErrAuth, "wallet request rejected by user")
	ErrProviderTimeout      = newKindError(ErrAuth, "wallet provider timed out")
	ErrConnectionInProgress = newKindError(ErrAuth, "wallet connection already in progress")
	ErrInvalidSignature     = newKindError(ErrAuth, "invalid wallet signature")
)

type kindError struct {
	kind error
	msg  string
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

// Is reports whether target is the kind this error belongs to.
func (e *kindError) Is(target error) bool { return target == e.kind }

// Code returns a stable machine-readable identifier for a known error.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

// ordered from specific to general so that kinds never shadow their members
var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidAmount, "invalid_amount"},
	{ErrInvalidTerm, "invalid_term"},
	{ErrInvalidRate, "invalid_rate"},
	{ErrAmountMismatch, "amount_mismatch"},
	{ErrAlreadyFunded, "already_funded"},
	{ErrInvalidState, "invalid_state"},
	{ErrAlreadyExists, "already_exists"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrProviderUnavailable, "provider_unavailable"},
	{ErrUserRejected, "user_rejected"},
	{ErrProviderTimeout, "provider_timeout"},
	{ErrConnectionInProgress, "connection_in_progress"},
	{ErrInvalidSignature, "invalid_signature"},
	{ErrSelfDealingNotAllowed, "self_dealing_not_allowed"},
	{ErrForbidden, "forbidden"},
	{ErrNotFound, "not_found"},
	{ErrValidation, "validation_error"},
	{ErrStateConflict, "state_conflict"},
	{ErrAuth, "auth_error"},
}
