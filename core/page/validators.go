package page

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/blocktree"
)

var (
	// custom validation tags & texts
	dockindTag    = "dockind"
	dockindText   = "must be one of: page, blog"
	blocktreeTag  = "blocktree"
	blocktreeText = "invalid block tree"
)

// InitValidators registers the document validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(dockindTag, dockindValidation)
	core.RegisterCustomTranslation(validate, translator, dockindTag, dockindText)

	_ = validate.RegisterValidation(blocktreeTag, blocktreeValidation)
	core.RegisterCustomTranslation(validate, translator, blocktreeTag, blocktreeText)
}

func dockindValidation(fl validator.FieldLevel) bool {
	return Kind(fl.Field().String()).Valid()
}

// blocktreeValidation accepts trees with unique ids, known types and legal nesting.
func blocktreeValidation(fl validator.FieldLevel) bool {
	blocks, ok := fl.Field().Interface().(blocktree.Blocks)
	if !ok {
		return false
	}
	return blocktree.Validate(blocks) == nil
}
