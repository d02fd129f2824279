package handlers

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BindJSON binds and validates the request body. On failure it writes
// the 400 envelope with one human-readable message per failed field
// and returns false.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		RespondValidation(ctx, validationMessages(err, out))

		return false
	}

	return true
}

func validationMessages(err error, out interface{}) []string {
	var validatorErrs validator.ValidationErrors

	if !errors.As(err, &validatorErrs) {
		// bad JSON syntax or a type mismatch; no field to blame
		return []string{"Invalid request body"}
	}

	rootType := baseStructType(out)
	msgs := make([]string, 0, len(validatorErrs))

	for _, fe := range validatorErrs {
		label := fieldLabel(rootType, fe.StructField())
		msgs = append(msgs, validationMessage(label, fe.Tag(), fe.Param()))
	}

	return msgs
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

// fieldLabel resolves the JSON name of a struct field and renders it
// human-readable: "currentPassword" -> "Current password".
func fieldLabel(rootType reflect.Type, structField string) string {
	name := structField

	if rootType != nil {
		if sf, ok := rootType.FieldByName(structField); ok {
			tag, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
			if tag != "" && tag != "-" {
				name = tag
			}
		}
	}

	return humanize(name)
}

func humanize(camel string) string {
	var b strings.Builder

	for i, r := range camel {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteByte(' ')
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

func validationMessage(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required"
	case "email":
		return "Please provide a valid email address"
	case "min":
		return label + " must be at least " + param + " characters long"
	case "max":
		return label + " must not exceed " + param + " characters"
	default:
		return label + " is invalid"
	}
}
