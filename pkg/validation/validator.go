package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Get returns the shared validator with custom rules registered
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New()

		// Report JSON field names instead of Go field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		// Decimals are validated through their canonical string form
		validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
			if d, ok := v.Interface().(decimal.Decimal); ok {
				return d.String()
			}
			return nil
		}, decimal.Decimal{})

		_ = validate.RegisterValidation("positive_decimal", validatePositiveDecimal)
		_ = validate.RegisterValidation("nonnegative_decimal", validateNonNegativeDecimal)
		_ = validate.RegisterValidation("card_status", validateCardStatus)
	})
	return validate
}

// ValidateStruct validates a struct and converts failures into a ValidationError
func ValidateStruct(s interface{}) error {
	if err := Get().Struct(s); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			return NewValidationError(errs)
		}
		return err
	}
	return nil
}

func decimalFromField(fl validator.FieldLevel) (decimal.Decimal, bool) {
	if fl.Field().Kind() != reflect.String {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func validatePositiveDecimal(fl validator.FieldLevel) bool {
	d, ok := decimalFromField(fl)
	return ok && d.IsPositive()
}

func validateNonNegativeDecimal(fl validator.FieldLevel) bool {
	d, ok := decimalFromField(fl)
	return ok && !d.IsNegative()
}

func validateCardStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "active", "disabled":
		return true
	default:
		return false
	}
}
