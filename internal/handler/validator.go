package handler

import (
	"errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

var phonePattern = regexp.MustCompile(`^[0-9()\-\s+]+$`)

// Validator adapts go-playground/validator to echo's Validator hook.
// Field names in errors follow the json tags the client sent.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	// decimal prices validate as numbers (gte=0.01 and friends)
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errBadBody marks a body that could not be decoded at all.
var errBadBody = errors.New("invalid body")

// bindValid decodes the request into dst and validates it.
func bindValid(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return errBadBody
	}
	return c.Validate(dst)
}

// invalid writes the 400 response for an error returned by bindValid.
func invalid(c echo.Context, err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	details := make([]fieldError, 0, len(ve))
	for _, fe := range ve {
		details = append(details, fieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "details": details})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt", "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "eq":
		return "must be accepted"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "datetime":
		return "must match " + fe.Param()
	case "gtfield":
		return "must be after " + fe.Param()
	case "phone":
		return "may only contain digits, spaces, +, - and parentheses"
	}
	return "is invalid"
}
