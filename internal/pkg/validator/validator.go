package validator

import (
	"github.com/go-playground/validator/v10"

	"github.com/Pesokrava/game_catalog/internal/domain"
)

// Shared validator instance to avoid creating multiple instances
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("game_status", func(fl validator.FieldLevel) bool {
		return domain.Status(fl.Field().String()).Valid()
	})
}

// Get returns the shared validator instance
func Get() *validator.Validate {
	return validate
}
