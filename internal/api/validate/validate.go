package validate

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string { // error interface
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

// Helpers
func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func PositiveID(field string, v int64) *ErrField {
	if v <= 0 {
		return &ErrField{Field: field, Msg: "must be a positive user id"}
	}
	return nil
}

func MinInt(field string, v, min int64) *ErrField {
	if v < min {
		return &ErrField{Field: field, Msg: "must be >= " + strconv.FormatInt(min, 10)}
	}
	return nil
}

func PositiveAmount(field string, v decimal.Decimal) *ErrField {
	if !v.IsPositive() {
		return &ErrField{Field: field, Msg: "must be > 0"}
	}
	return nil
}
