package dto

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	phonePattern    = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("iso_currency", func(fl validator.FieldLevel) bool {
		return currencyPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	return v
}

// fieldMessages holds the client-facing message per field and failed tag.
var fieldMessages = map[string]map[string]string{
	"customerId":   {"notblank": "Customer ID is required"},
	"accountType":  {"notblank": "Account type is required", "oneof": "Invalid account type"},
	"currency":     {"notblank": "Currency is required", "iso_currency": "Currency must be 3-letter ISO code"},
	"customerName": {"notblank": "Customer name is required", "max": "Customer name must be at most 255 characters"},
	"email":        {"notblank": "Email is required", "email": "Invalid email format"},
	"phoneNumber":  {"phone": "Invalid phone number format"},
	"status":       {"notblank": "Status is required", "oneof": "Invalid status"},
}

// Validate checks req against its validate tags and returns the failures
// keyed by JSON field name. It returns nil when req is valid.
func Validate(req any) map[string]string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"request": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = messageFor(fe)
	}

	return out
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()][fe.Tag()]; ok {
		return msg
	}

	switch fe.Tag() {
	case "notblank", "required":
		return "This field is required"
	case "max":
		return "Value is too long"
	default:
		return "Invalid value"
	}
}
