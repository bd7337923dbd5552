package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNetwork             = errors.New("backend request failed")
	ErrGateway             = errors.New("payment gateway failed")
	ErrPaymentRejected     = errors.New("payment verification rejected")
	ErrPaymentTimeout      = errors.New("payment timed out")
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrCheckoutInProgress  = errors.New("checkout already in progress")
	ErrUnreconciledPayment = errors.New("previous payment not yet verified")
	ErrIllegalTransition   = errors.New("illegal transition of checkout step")
)

// ErrVerificationDeclined marks a definite refusal of a confirmation by the
// backend; resending the same confirmation cannot succeed.
var ErrVerificationDeclined = errors.New("payment confirmation declined")

// ValidationError names the first required customer field that is missing.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " is required"
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Err joins a typed sentinel with the underlying cause and an optional message.
func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	}
	return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
}

const genericFailure = "Payment processing failed. Please try again."

// UserMessage converts err into the text shown to the customer. Only local
// problems get a specific message; every backend or gateway failure reads the same.
func UserMessage(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return "Please enter your " + ve.Field + "."
	case errors.Is(err, ErrEmptyCart):
		return "Your cart is empty."
	case errors.Is(err, ErrCheckoutInProgress):
		return "A payment is already in progress."
	case errors.Is(err, ErrUnreconciledPayment):
		return "Your last payment is still being confirmed. Please retry verification."
	default:
		return genericFailure
	}
}
