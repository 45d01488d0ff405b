package validator

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/coupon-console/internal/model"
)

// New creates a new validator instance with custom validations registered.
func New() *validator.Validate {
	v := validator.New()

	// "notblank" rejects whitespace-only strings.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true // Not a string, let other validators handle it
		}
		return strings.TrimSpace(str) != ""
	})

	v.RegisterStructValidation(couponUpdateWindow, model.CouponUpdate{})

	return v
}

// couponUpdateWindow enforces validFrom < validTo when an update sets both.
func couponUpdateWindow(sl validator.StructLevel) {
	u := sl.Current().Interface().(model.CouponUpdate)
	if u.ValidFrom != nil && u.ValidTo != nil && !u.ValidTo.After(*u.ValidFrom) {
		sl.ReportError(u.ValidTo, "ValidTo", "validTo", "gtfield", "ValidFrom")
	}
}

var fieldLabels = map[string]string{
	"Name":          "name",
	"DiscountValue": "discount value",
	"ValidFrom":     "valid from date",
	"ValidTo":       "valid to date",
	"Size":          "page size",
	"Page":          "page",
	"SortBy":        "sort field",
	"Direction":     "sort direction",
}

// Message converts the first validation failure into a user-facing sentence.
func Message(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}

	fe := ve[0]
	label, ok := fieldLabels[fe.StructField()]
	if !ok {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "notblank":
		return label + " cannot be whitespace only"
	case "max":
		return label + " exceeds maximum length of " + fe.Param()
	case "gte":
		return label + " must be at least " + fe.Param()
	case "lte":
		return label + " must be at most " + fe.Param()
	case "gtfield":
		return "valid to date must be after valid from date"
	case "oneof":
		return label + " must be one of: " + fe.Param()
	default:
		return label + " is invalid"
	}
}
