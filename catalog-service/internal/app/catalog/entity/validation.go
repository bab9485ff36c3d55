package entity

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	skuPattern     = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
	keywordPattern = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)
)

// NewValidator создаёт валидатор с правилами каталога:
// notblank, sku (буквы, цифры, дефис), keyword (буквы, цифры, пробел).
// Имена полей в ошибках берутся из json/form тегов
func NewValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	// Ошибки регистрации возможны только при пустом имени тега
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("sku", func(fl validator.FieldLevel) bool {
		return skuPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("keyword", func(fl validator.FieldLevel) bool {
		return keywordPattern.MatchString(fl.Field().String())
	})

	return v
}

// FieldErrors переводит ошибку валидатора в список ошибок по полям
func FieldErrors(err error) []FieldError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []FieldError{{Field: "body", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		out = append(out, FieldError{
			Field:   fieldPath(e.Namespace()),
			Message: describe(e),
		})
	}
	return out
}

// fieldPath отбрасывает имя корневой структуры: ProductRequest.reviews[0].rating -> reviews[0].rating
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "email":
		return "must be a valid email"
	case "sku":
		return "may contain only letters, digits and '-'"
	case "keyword":
		return "may contain only letters, digits and spaces"
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s element(s)", e.Param())
		}
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", e.Param())
		}
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", e.Tag())
	}
}
