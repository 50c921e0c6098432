package core

// validation.go checks user input before it reaches the store or the
// export pipeline.
//
// Rules are declared as `validate` struct tags and evaluated by
// go-playground/validator. Messages come from the validator's English
// translator, with "required" reworded to "The title field is required."
// so form errors read the same on every page.

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslation "github.com/go-playground/validator/v10/translations/en"

	"github.com/JonMunkholm/bookshelf/internal/export"
)

// FieldErrors maps a form field name to its validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: %s", f, fe[f])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// ExportOptions are the column flags of an export request. At least one
// must be set.
type ExportOptions struct {
	IncludeTitle  bool `form:"generateTitle" validate:"required_without=IncludeAuthor"`
	IncludeAuthor bool `form:"generateAuthor" validate:"required_without=IncludeTitle"`
}

type inputValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newInputValidator() *inputValidator {
	validate := validator.New()

	enLocale := en.New()
	translator, found := ut.New(enLocale, enLocale).GetTranslator("en")
	if !found {
		panic(fmt.Errorf("en translator was not found"))
	}
	if err := enTranslation.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(fmt.Errorf("translator was not registered: %w", err))
	}

	err := validate.RegisterTranslation("required", translator,
		func(t ut.Translator) error {
			return t.Add("required", "The {0} field is required.", true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T("required", fe.Field())
			return msg
		},
	)
	if err != nil {
		panic(fmt.Errorf("required translation was not registered: %w", err))
	}

	// Use form field names in messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &inputValidator{validate: validate, translator: translator}
}

// book validates a normalized BookInput. It returns FieldErrors holding
// the first failure of each field.
func (v *inputValidator) book(in BookInput) error {
	err := v.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate book: %w", err)
	}

	fe := make(FieldErrors, len(verrs))
	for _, e := range verrs {
		if _, seen := fe[e.Field()]; !seen {
			fe[e.Field()] = e.Translate(v.translator)
		}
	}
	return fe
}

// exportOptions rejects a request with no column selected.
func (v *inputValidator) exportOptions(opts ExportOptions) error {
	err := v.validate.Struct(opts)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return &export.ValidationError{Message: export.NoColumnsMessage}
	}
	return fmt.Errorf("validate export options: %w", err)
}
