package daily

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/dailies/core"
)

var (
	progressTag  = "progress"
	progressText = "invalid progress status"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(progressTag, progressValidation)
	core.RegisterCustomTranslation(validate, translator, progressTag, progressText)
}

// Custom Validators

// progressValidation checks that the provided progress is one of Progresses
func progressValidation(fl validator.FieldLevel) bool {
	if p, ok := fl.Field().Interface().(Progress); ok {
		return p.IsValid()
	}
	return false
}
