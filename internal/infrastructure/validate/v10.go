package validate

import (
	"fmt"
	"reflect"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// PlaygroundV10 Validator implementation using go-playground
type PlaygroundV10 struct {
	core  *validator.Validate
	trans ut.Translator
}

var _ Validator = &PlaygroundV10{}

// NewValidator create a new Validator, locale can be "en" or "zh"
func NewValidator(locale ...string) *PlaygroundV10 {
	en := en.New()
	zh := zh.New()
	uni := ut.New(en, en, zh)

	name := "en"
	if len(locale) > 0 && locale[0] != "" {
		name = locale[0]
	}
	trans, found := uni.GetTranslator(name)
	if !found {
		trans, _ = uni.GetTranslator("en")
		name = "en"
	}

	validate := validator.New()
	if name == "zh" {
		zh_translations.RegisterDefaultTranslations(validate, trans)
	} else {
		en_translations.RegisterDefaultTranslations(validate, trans)
	}
	validate.RegisterTagNameFunc(JSONTagName)
	return &PlaygroundV10{
		core:  validate,
		trans: trans,
	}
}

// JSONTagName report json (or yaml) field name in validation errors
func JSONTagName(fld reflect.StructField) string {
	name := fld.Tag.Get("json")
	if name == "-" || name == "" {
		name = fld.Tag.Get("yaml")
		if name == "-" || name == "" {
			return ""
		}
	}
	if i := indexComma(name); i >= 0 {
		name = name[:i]
	}
	return name
}

func indexComma(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			return i
		}
	}
	return -1
}

// Struct validate struct
func (v PlaygroundV10) Struct(s interface{}) []*FieldError {
	var result []*FieldError
	validate := v.core
	if err := validate.Struct(s); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, item := range ve {
				result = append(result, NewFieldError(item.Field(), item.Translate(v.trans)))
			}
			return result
		}
		return []*FieldError{NewFieldError("", err.Error())}
	}
	return nil
}

// Empty check if value is empty
func (v PlaygroundV10) Empty(varName string, s interface{}) []*FieldError {
	validate := v.core
	var result []*FieldError
	if err := validate.Var(s, "required"); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			for range ve {
				msg := fmt.Sprintf("%s is required", varName)
				result = append(result, NewFieldError(varName, msg))
			}
			return result
		}
	}
	return nil
}
