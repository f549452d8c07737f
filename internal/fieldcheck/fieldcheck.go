// Package fieldcheck validates a single form value against a small rule set and reports
// every failing rule with its visitor-facing message.
package fieldcheck

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/seungjae8520/hjjtest/internal/format"
)

// Rules mirrors the per-field options of the site's form validation helper. Zero values
// disable a rule.
type Rules struct {
	Required  bool `json:"required"`
	MinLength int  `json:"min_length" validate:"gte=0"`
	MaxLength int  `json:"max_length" validate:"gte=0"`
	Email     bool `json:"email"`
	Phone     bool `json:"phone"`
	URL       bool `json:"url"`
}

const (
	MsgRequired = "필수 입력 항목입니다."
	MsgEmail    = "올바른 이메일 형식이 아닙니다."
	MsgPhone    = "올바른 전화번호 형식이 아닙니다."
	MsgURL      = "올바른 URL 형식이 아닙니다."
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the site's custom tags registered:
// site_email, mobile and web_url.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("site_email", func(fl validator.FieldLevel) bool {
			return format.IsEmail(fl.Field().String())
		})
		_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
			return format.IsMobile(fl.Field().String())
		})
		_ = v.RegisterValidation("web_url", func(fl validator.FieldLevel) bool {
			return format.IsURL(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Check runs rules against value in a fixed order and returns every message that applies.
// Format rules only run on non-empty values; length rules count runes and always run.
func Check(value string, rules Rules) []string {
	v := Validator()
	var errs []string

	if rules.Required && v.Var(value, "required") != nil {
		errs = append(errs, MsgRequired)
	}
	if rules.MinLength > 0 && v.Var(value, "min="+strconv.Itoa(rules.MinLength)) != nil {
		errs = append(errs, fmt.Sprintf("최소 %d자 이상 입력해주세요.", rules.MinLength))
	}
	if rules.MaxLength > 0 && v.Var(value, "max="+strconv.Itoa(rules.MaxLength)) != nil {
		errs = append(errs, fmt.Sprintf("최대 %d자까지 입력 가능합니다.", rules.MaxLength))
	}
	if value == "" {
		return errs
	}
	if rules.Email && v.Var(value, "site_email") != nil {
		errs = append(errs, MsgEmail)
	}
	if rules.Phone && v.Var(value, "mobile") != nil {
		errs = append(errs, MsgPhone)
	}
	if rules.URL && v.Var(value, "web_url") != nil {
		errs = append(errs, MsgURL)
	}
	return errs
}

// Errors tracks messages per field, like the form helper's error map.
type Errors map[string][]string

// Validate checks value and records the result under field. It reports whether the field passed.
func (e Errors) Validate(field, value string, rules Rules) bool {
	msgs := Check(value, rules)
	if len(msgs) == 0 {
		delete(e, field)
		return true
	}
	e[field] = msgs
	return false
}

// First returns the first message for field, or "".
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}
