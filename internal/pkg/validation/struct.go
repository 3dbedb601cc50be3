package validation

import (
	"errors"
	"strings"

	"certhub-backend/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates v's `validate` tags and returns the first failure as a
// *domain.ValidationError keyed by the field's json name.
func Struct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.Invalid("", err.Error())
	}
	fe := verrs[0]
	return domain.Invalid(jsonName(fe), describe(fe))
}

func jsonName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field()[:1]) + toSnake(fe.Field()[1:])
}

func toSnake(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "credit_card":
		return "invalid card number"
	case "numeric":
		return "must be numeric"
	case "email":
		return "invalid email"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "failed " + fe.Tag()
}
