package validator

import (
	"errors"
	"fmt"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
	ValidateField(field string, value interface{}, rules ...string) error
}

type validator struct {
	v *playground.Validate
}

func New() Validator {
	return &validator{
		v: playground.New(playground.WithRequiredStructEnabled()),
	}
}

func (v *validator) Validate(obj interface{}) error {
	return describe(v.v.Struct(obj), "")
}

// ValidateField checks a single value against go-playground rules such as
// "required" or "email".
func (v *validator) ValidateField(field string, value interface{}, rules ...string) error {
	return describe(v.v.Var(value, strings.Join(rules, ",")), field)
}

func describe(err error, field string) error {
	if err == nil {
		return nil
	}
	var verrs playground.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	name := field
	if name == "" {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", name)
	case "email":
		return fmt.Errorf("%s must be a valid email", name)
	case "min":
		return fmt.Errorf("%s must be at least %s", name, fe.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s", name, fe.Param())
	default:
		return fmt.Errorf("%s failed %s validation", name, fe.Tag())
	}
}
