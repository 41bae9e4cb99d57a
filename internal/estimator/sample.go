package estimator

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// gt=0 alone lets +Inf through
	if err := v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsInf(f, 0) && !math.IsNaN(f)
	}); err != nil {
		panic(err)
	}
	return v
}

// Subject holds the demographic inputs shared by every measurement of a person
type Subject struct {
	Age             float64 `json:"age" validate:"finite,gt=0"`
	Female          int     `json:"female" validate:"oneof=0 1"`
	AfricanAmerican int     `json:"african_american" validate:"oneof=0 1"`
}

// Sample is a subject plus one serum creatinine measurement
type Sample struct {
	Subject
	Creatinine float64 `json:"creatinine" validate:"finite,gt=0"`
}

// ValidationError describes one rejected input field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors lists every rejected field of a Sample
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, ve := range e {
		parts[i] = ve.Error()
	}
	return strings.Join(parts, "; ")
}

// Validate checks that age and creatinine are positive and that both
// indicators are 0 or 1. NaN and infinities are rejected.
func (s Sample) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: describe(fe),
			Value:   fe.Value(),
		})
	}
	return out
}

// Rate validates the sample and evaluates the formula. Invalid samples
// return NaN together with ValidationErrors.
func (s Sample) Rate() (float64, error) {
	if err := s.Validate(); err != nil {
		return math.NaN(), err
	}
	return Estimate(s.Age, s.Female, s.AfricanAmerican, s.Creatinine), nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "finite":
		return "must be a finite number"
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
