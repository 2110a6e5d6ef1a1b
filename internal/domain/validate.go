package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. Struct tags on canonical
// entities declare the required-field contract every mapper must satisfy
// before persistence.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the required-field contract of a canonical entity.
func Validate(entity any) error {
	if err := validate.Struct(entity); err != nil {
		return fmt.Errorf("canonical entity validation: %w", err)
	}
	return nil
}
