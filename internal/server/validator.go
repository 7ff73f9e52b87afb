// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo.Validator. Field names
// in errors use the json tag.
type Validator struct {
	validate *validator.Validate
}

var _ echo.Validator = (*Validator)(nil)

// NewValidator returns a Validator with the request validation rules.
func NewValidator() *Validator {
	validate := validator.New()

	commonTags := []string{"json", "param", "query"}
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range commonTags {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return ""
	})

	// sortby accepts the empty string or a known sort key.
	validate.RegisterValidation("sortby", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "", "relevance", "price", "rating":
			return true
		}
		return false
	})

	return &Validator{validate: validate}
}

// Validate checks i against its validate tags.
func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
