package http

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	recipientPattern = regexp.MustCompile(`^[가-힣a-zA-Z\s]+$`)
	phonePattern     = regexp.MustCompile(`^01[0-9]-?[0-9]{3,4}-?[0-9]{4}$`)
	postalPattern    = regexp.MustCompile(`^\d{5}$|^\d{5}-\d{3}$`)
)

// messages maps "<json field>.<tag>" to the text shown to the caller.
var messages = map[string]string{
	"recipient.required":        "수령인을 입력해주세요.",
	"recipient.max":             "수령인 이름은 50자 이하여야 합니다.",
	"recipient.recipient":       "수령인 이름은 한글 또는 영문만 입력 가능합니다.",
	"phone.required":            "연락처를 입력해주세요.",
	"phone.krphone":             "올바른 전화번호 형식이 아닙니다. (예: 010-1234-5678)",
	"postal_code.required":      "우편번호를 입력해주세요.",
	"postal_code.krpostal":      "올바른 우편번호 형식이 아닙니다. (예: 12345 또는 12345-678)",
	"address.required":          "주소를 입력해주세요.",
	"address.max":               "주소는 200자 이하여야 합니다.",
	"detail_address.max":        "상세주소는 100자 이하여야 합니다.",
	"order_note.max":            "주문 메모는 500자 이하여야 합니다.",
	"shipping_address.required": "배송지 정보를 입력해주세요.",
	"line_ids.required":         "삭제할 아이템을 선택해주세요.",
	"line_ids.min":              "삭제할 아이템을 선택해주세요.",
	"product_id.required":       "상품을 선택해주세요.",
	"quantity.required":         "수량을 입력해주세요.",
	"payment_key.required":      "결제 정보가 누락되었습니다.",
	"order_id.required":         "결제 정보가 누락되었습니다.",
	"amount.required":           "결제 금액이 누락되었습니다.",
	"amount.min":                "결제 금액이 올바르지 않습니다.",
}

const invalidInputMessage = "입력값이 올바르지 않습니다."

type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("recipient", matches(recipientPattern))
	_ = v.RegisterValidation("krphone", matches(phonePattern))
	_ = v.RegisterValidation("krpostal", matches(postalPattern))
	_ = v.RegisterValidation("runes", maxRunes)
	return &Validator{v: v}
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// maxRunes is "max" counted in characters rather than bytes, so Hangul is not penalised.
func maxRunes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return utf8.RuneCountInString(fl.Field().String()) <= limit
}

// Validate returns the caller-facing message of the first failing rule, or "" when s is valid.
func (v *Validator) Validate(s interface{}) string {
	err := v.v.Struct(s)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalidInputMessage
	}
	fe := verrs[0]
	tag := fe.Tag()
	if tag == "runes" {
		tag = "max"
	}
	if msg, ok := messages[fe.Field()+"."+tag]; ok {
		return msg
	}
	return invalidInputMessage
}
