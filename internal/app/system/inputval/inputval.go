// Package inputval validates decoded request input using struct tags.
//
// Fields are tagged with `validate:"..."` rules and an optional
// `label:"..."` used in messages. The reported field name is the json tag
// name so API clients can map errors back to their payload.
package inputval

import (
	"errors"
	"net/mail"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result collects every failed rule in field order.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

var (
	once sync.Once
	v    *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("email", stringRule(IsValidEmail))
		_ = v.RegisterValidation("objectid", stringRule(IsValidObjectID))
		_ = v.RegisterValidation("billingstatus", stringRule(IsValidBillingStatus))
	})
	return v
}

func stringRule(fn func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		return fn(fl.Field().String())
	}
}

// Validate checks s (a struct or pointer to struct) against its tags.
func Validate(s any) *Result {
	res := &Result{}
	err := engine().Struct(s)
	if err == nil {
		return res
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.Errors = append(res.Errors, FieldError{Message: err.Error()})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{
			Field:   fieldPath(fe),
			Message: message(s, fe),
		})
	}
	return res
}

// fieldPath drops the struct name prefix: "Input.organizationIds[0]" becomes
// "organizationIds[0]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func label(s any, fe validator.FieldError) string {
	t := reflect.TypeOf(s)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t != nil && t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
		}
	}
	return fe.Field()
}

func message(s any, fe validator.FieldError) string {
	name := label(s, fe)
	switch fe.Tag() {
	case "required":
		return name + " is required."
	case "max":
		if fe.Kind() == reflect.Slice {
			return name + " must contain at most " + fe.Param() + " items."
		}
		return name + " must be at most " + fe.Param() + " characters."
	case "min":
		if fe.Kind() == reflect.Slice {
			return name + " must contain at least " + fe.Param() + " item(s)."
		}
		return name + " must be at least " + fe.Param() + " characters."
	case "email":
		return "A valid email address is required."
	case "objectid":
		return name + " must be a valid id."
	case "billingstatus":
		return name + " must be one of: " + strings.Join(models.BillingStatuses, ", ") + "."
	case "oneof":
		return name + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	default:
		return name + " is invalid."
	}
}

// IsValidEmail reports whether s is a bare addr-spec (no display name).
func IsValidEmail(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && addr.Name == ""
}

// IsValidObjectID reports whether s is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

// IsValidBillingStatus reports whether s is a known billing status.
func IsValidBillingStatus(s string) bool {
	return models.IsValidBillingStatus(strings.TrimSpace(s))
}
