package common

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/meridianpay/meridian/internal/domain/money"
)

// The "currency" rule makes malformed codes fail at binding time instead
// of deep in a handler.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
			_, err := money.ParseCurrency(fl.Field().String())
			return err == nil
		})
	}
}
