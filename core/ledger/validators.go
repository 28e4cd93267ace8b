package ledger

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/davidobonyano/yano-school-next-sub001/core"
)

var (
	termTag  = "term"
	termText = "{0} must be a term such as \"First Term\", \"2nd\" or \"Term 3\""

	sessionTag  = "session"
	sessionText = "{0} must be a session such as \"2024/2025\""

	entryTypeTag  = "entrytype"
	entryTypeText = "{0} must be one of Bill, Payment, Adjustment"

	payMethodTag  = "paymethod"
	payMethodText = "{0} must be one of cash, transfer, card, pos, cheque, bulk"
)

// RegisterValidators registers the ledger's custom validation tags and their messages.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(termTag, termValidation)
	core.RegisterCustomTranslation(validate, translator, termTag, termText)

	_ = validate.RegisterValidation(sessionTag, sessionValidation)
	core.RegisterCustomTranslation(validate, translator, sessionTag, sessionText)

	_ = validate.RegisterValidation(entryTypeTag, entryTypeValidation)
	core.RegisterCustomTranslation(validate, translator, entryTypeTag, entryTypeText)

	_ = validate.RegisterValidation(payMethodTag, payMethodValidation)
	core.RegisterCustomTranslation(validate, translator, payMethodTag, payMethodText)
}

// Custom Validators

func termValidation(fl validator.FieldLevel) bool {
	_, err := ParseTerm(fl.Field().String())
	return err == nil
}

func sessionValidation(fl validator.FieldLevel) bool {
	_, err := ParseSession(fl.Field().String())
	return err == nil
}

// entryTypeValidation accepts the types that can be recorded directly; CarryForward is engine-only.
func entryTypeValidation(fl validator.FieldLevel) bool {
	et, err := ParseEntryType(fl.Field().String())
	return err == nil && et != CarryForward
}

func payMethodValidation(fl validator.FieldLevel) bool {
	return ValidPaymentMethod(core.CleanString(fl.Field().String(), true /* lower */))
}
