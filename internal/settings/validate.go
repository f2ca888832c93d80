package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// ErrTranslatorNotFound indicates the English translator could not be built.
var ErrTranslatorNotFound = errors.New("translator not found")

// ValidationError maps JSON field names to human readable messages.
type ValidationError map[string]string

func (ve ValidationError) Error() string {
	if len(ve) == 0 {
		return "invalid settings"
	}
	b, err := json.Marshal(ve)
	if err != nil {
		return fmt.Sprintf("invalid settings (failed to marshal: %v)", err)
	}
	return "invalid settings: " + string(b)
}

// Fields returns the offending field names, sorted.
func (ve ValidationError) Fields() []string {
	out := make([]string, 0, len(ve))
	for k := range ve {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validator checks Settings with go-playground/validator and English messages.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator builds a Validator with English translations registered.
func NewValidator() (*Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names so messages line up with the stored document.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}
	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}
	if err := registerCustom(validate, enTrans); err != nil {
		return nil, err
	}
	return &Validator{validate: validate, translator: enTrans}, nil
}

var (
	defaultValidatorOnce sync.Once
	defaultValidator     *Validator
	defaultValidatorErr  error
)

// Validate checks s with a lazily built package validator.
func Validate(s Settings) error {
	defaultValidatorOnce.Do(func() {
		defaultValidator, defaultValidatorErr = NewValidator()
	})
	if defaultValidatorErr != nil {
		return defaultValidatorErr
	}
	return defaultValidator.Validate(s)
}

// Validate returns a ValidationError when s breaks a rule.
func (v *Validator) Validate(s Settings) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make(ValidationError, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field()] = fe.Translate(v.translator)
	}
	return out
}

func registerCustom(validate *validator.Validate, enTrans ut.Translator) error {
	if err := validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	}); err != nil {
		return err
	}
	// gte/lte compare against NaN as false but let +Inf through gte.
	if err := validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f, ok := fl.Field().Interface().(float64)
		return ok && !math.IsInf(f, 0) && !math.IsNaN(f)
	}); err != nil {
		return err
	}
	if err := registerMessage(validate, enTrans, "notblank", "{0} is required"); err != nil {
		return err
	}
	return registerMessage(validate, enTrans, "finite", "{0} must be a finite number")
}

func registerMessage(validate *validator.Validate, enTrans ut.Translator, tag, text string) error {
	return validate.RegisterTranslation(tag, enTrans,
		func(t ut.Translator) error {
			return t.Add(tag, text, false)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(fe.Tag(), fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}
