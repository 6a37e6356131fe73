package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotPayable   = errors.New("order is not awaiting payment")
	ErrAlreadyPaid       = errors.New("order is already paid")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrMissingReference  = errors.New("webhook payload has no reference")
	ErrMalformedPayload  = errors.New("malformed webhook payload")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrCustomerHasOrders = errors.New("customer has orders")
	ErrChatNotFound      = errors.New("chat not found")
	ErrUnsupportedStatus = errors.New("notifications are only sent for confirmed and ready orders")
)

// ValidationError is returned when input is rejected before anything is written
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AmountMismatchError is returned when a successful charge does not match the order total
type AmountMismatchError struct {
	OrderID          string
	ExpectedAmount   int64
	ReceivedAmount   int64
	ExpectedCurrency string
	ReceivedCurrency string
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("charge for order %s does not match: expected %d %s, received %d %s",
		e.OrderID, e.ExpectedAmount, e.ExpectedCurrency, e.ReceivedAmount, e.ReceivedCurrency)
}

// fromValidator converts validator/v10 errors into a ValidationError keyed by json field path
func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	var parts []string
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		msg := describeTag(fe)
		fields[field] = msg
		parts = append(parts, field+" "+msg)
	}
	return &ValidationError{
		Message: "invalid request: " + strings.Join(parts, "; "),
		Fields:  fields,
	}
}

// fieldPath drops the root struct name from a validator namespace ("CheckoutInput.Items[0].Quantity")
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must contain at least " + fe.Param() + " item(s)"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
