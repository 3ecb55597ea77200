package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/pumpline/fuel-ledger/ledger"
)

// newValidator returns a validator that reports json field names and
// understands decimals and the ledger's closed sets.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("fuel", func(fl validator.FieldLevel) bool {
		_, err := ledger.ParseFuelType(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return ledger.PaymentMethod(fl.Field().String()).Valid()
	})

	return v
}

// fieldErrors flattens validator output into field → message.
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return fmt.Sprintf("is required when %s", strings.Replace(fe.Param(), " ", " is ", 1))
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must not be negative"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "fuel":
		return "must be one of petrol, diesel, high_octane"
	case "payment_method":
		return "must be one of cash, card, credit, bank_transfer"
	}
	return "is invalid"
}
