package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
)

// maxAmountCents caps any single monetary input at 100 million in major units.
const maxAmountCents int64 = 10_000_000_000

var validate = newValidator()

// enumTags bind a validation tag to the parser that owns the allowed values.
var enumTags = map[string]func(string) bool{
	"payment_method":   func(v string) bool { _, err := enums.ParsePaymentMethod(v); return err == nil },
	"payout_method":    func(v string) bool { _, err := enums.ParsePayoutMethod(v); return err == nil },
	"payout_decision":  func(v string) bool { _, err := enums.ParsePayoutDecision(v); return err == nil },
	"dispute_decision": func(v string) bool { _, err := enums.ParseDisputeDecision(v); return err == nil },
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	for tag, valid := range enumTags {
		mustRegister(v, tag, func(fl validator.FieldLevel) bool {
			return valid(fl.Field().String())
		})
	}
	mustRegister(v, "cents", func(fl validator.FieldLevel) bool {
		amount := fl.Field().Int()
		return amount > 0 && amount <= maxAmountCents
	})
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// DecodeJSONBody decodes a single JSON object into dest, rejecting unknown fields and
// trailing data, then runs struct validation.
func DecodeJSONBody(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return invalidBody(err)
	}
	if decoder.More() {
		return invalidBody(errors.New("body must contain a single JSON object"))
	}
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func invalidBody(err error) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
		WithDetails(map[string]any{"error": err.Error()})
}

func formatValidationErrors(err error) *pkgerrors.Error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = validationMessage(fieldErr)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "uuid", "uuid4":
		return "must be a valid uuid"
	case "cents":
		return fmt.Sprintf("must be a positive amount in cents no greater than %d", maxAmountCents)
	}
	if _, ok := enumTags[fe.Tag()]; ok {
		return fmt.Sprintf("is not a valid %s", strings.ReplaceAll(fe.Tag(), "_", " "))
	}
	return "is invalid"
}
