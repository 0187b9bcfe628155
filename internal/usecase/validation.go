package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	domainErrors "github.com/polkiloo/bitlend/internal/domain/errors"
	"github.com/polkiloo/bitlend/internal/domain/model"
)

const (
	MinPasswordLength = 6
	MaxRateBps        = 100_000
	MaxTermDays       = 3650
)

var validate = newValidator()

// newValidator registers the limits above as tag aliases so struct tags
// cannot drift from them.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterAlias("password", fmt.Sprintf("required,min=%d", MinPasswordLength))
	v.RegisterAlias("principal", fmt.Sprintf("gt=0,lte=%d", int64(model.MaxAmount)))
	v.RegisterAlias("rate_bps", fmt.Sprintf("gte=0,lte=%d", MaxRateBps))
	v.RegisterAlias("term_days", fmt.Sprintf("gt=0,lte=%d", MaxTermDays))
	return v
}

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"password"`
}

type loanTerms struct {
	Principal model.Amount `validate:"principal"`
	RateBps   int          `validate:"rate_bps"`
	TermDays  int          `validate:"term_days"`
}

// ValidateCredentials checks email syntax and password length and returns
// the normalized email.
func ValidateCredentials(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Struct(credentials{Email: email, Password: password}); err != nil {
		return "", domainErrors.ErrInvalidCredentials
	}
	return email, nil
}

// ValidateLoanTerms reports the first offending field as a validation error.
func ValidateLoanTerms(principal model.Amount, rateBps, termDays int) error {
	err := validate.Struct(loanTerms{Principal: principal, RateBps: rateBps, TermDays: termDays})
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	switch fieldErrs[0].Field() {
	case "Principal":
		return domainErrors.ErrInvalidAmount
	case "RateBps":
		return domainErrors.ErrInvalidRate
	default:
		return domainErrors.ErrInvalidTerm
	}
}
