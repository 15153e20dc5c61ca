package validator

import (
	"fmt"

	playground "github.com/go-playground/validator/v10"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
	ValidateEmail(field, address string) error
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
	return v.v.Struct(obj)
}

func (v *validator) ValidateEmail(field, address string) error {
	if address == "" {
		return fmt.Errorf("%s is required", field)
	}
	if err := v.v.Var(address, "email"); err != nil {
		return fmt.Errorf("%s must be a valid email", field)
	}
	return nil
}
