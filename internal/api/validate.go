package api

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/Sternrassler/insight-engine/pkg/provider"
)

// TextLimits bounds the analyzed text in runes, counted after trimming.
type TextLimits struct {
	MinLength int
	MaxLength int
}

// DefaultTextLimits returns the 3..5000 rune window.
func DefaultTextLimits() TextLimits {
	return TextLimits{MinLength: 3, MaxLength: 5000}
}

// analyzeRequest is the POST /api/analyze body.
type analyzeRequest struct {
	Text         string `json:"text" validate:"required,textmin,textmax"`
	AnalysisType string `json:"analysisType" validate:"omitempty,analysis_type"`
}

// requestValidator checks analyze requests against the configured limits
// and renders English messages for failures.
type requestValidator struct {
	validate *validator.Validate
	trans    ut.Translator
	limits   TextLimits
}

func newRequestValidator(limits TextLimits) *requestValidator {
	enLoc := en.New()
	uni := ut.New(enLoc, enLoc)
	trans, _ := uni.GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())

	// prefer json tag names in messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "-" || tag == "" {
			return fld.Name
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		return tag
	})

	_ = en_translations.RegisterDefaultTranslations(v, trans)

	_ = v.RegisterValidation("textmin", func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(fl.Field().String()) >= limits.MinLength
	})
	_ = v.RegisterValidation("textmax", func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(fl.Field().String()) <= limits.MaxLength
	})
	_ = v.RegisterValidation("analysis_type", func(fl validator.FieldLevel) bool {
		_, ok := provider.ParseAnalysisType(fl.Field().String())
		return ok
	})

	registerMessage(v, trans, "textmin", "{0} must be at least {1} characters long", strconv.Itoa(limits.MinLength))
	registerMessage(v, trans, "textmax", "{0} must be at most {1} characters long", strconv.Itoa(limits.MaxLength))
	registerMessage(v, trans, "analysis_type", "{0} must be one of {1}", typeList())

	return &requestValidator{validate: v, trans: trans, limits: limits}
}

// check trims req.Text in place and validates the request. The returned
// analysis type is only meaningful when err is nil.
func (rv *requestValidator) check(req *analyzeRequest) (provider.AnalysisType, *ValidationError) {
	req.Text = strings.TrimSpace(req.Text)

	if err := rv.validate.Struct(req); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok || len(verrs) == 0 {
			return "", &ValidationError{Title: errInvalidBody, Details: err.Error()}
		}
		return "", rv.toValidationError(verrs[0], req)
	}

	t, _ := provider.ParseAnalysisType(req.AnalysisType)
	return t, nil
}

func (rv *requestValidator) toValidationError(fe validator.FieldError, req *analyzeRequest) *ValidationError {
	details := fe.Translate(rv.trans)
	current := utf8.RuneCountInString(req.Text)

	switch fe.Tag() {
	case "required":
		return &ValidationError{Title: errTextRequired, Details: details}
	case "textmin":
		return &ValidationError{
			Title:         errTextTooShort,
			Details:       details,
			CurrentLength: intPtr(current),
			MinLength:     intPtr(rv.limits.MinLength),
		}
	case "textmax":
		return &ValidationError{
			Title:         errTextTooLong,
			Details:       details,
			CurrentLength: intPtr(current),
			MaxLength:     intPtr(rv.limits.MaxLength),
		}
	case "analysis_type":
		return &ValidationError{Title: errUnsupportedType, Details: details}
	default:
		return &ValidationError{Title: errInvalidBody, Details: details}
	}
}

func registerMessage(v *validator.Validate, trans ut.Translator, tag, text, param string) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field(), param)
			return msg
		},
	)
}

func typeList() string {
	types := provider.AnalysisTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return fmt.Sprintf("[%s]", strings.Join(names, ", "))
}
