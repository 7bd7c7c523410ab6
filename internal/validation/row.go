package validation

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// rowValidator is the package-wide validator.Validate instance, built once
// and reused across every domain's RowIn/RowOut struct tags, mirroring the
// teacher's single package-level validator instance pattern.
var (
	rowValidatorOnce sync.Once
	rowValidator     *validator.Validate
)

func instance() *validator.Validate {
	rowValidatorOnce.Do(func() {
		rowValidator = validator.New()
	})
	return rowValidator
}

// ValidateRow runs struct-tag validation over v (a domain's RowIn or RowOut
// type) and flattens the result into one human-readable message per failed
// field, matching spec §4.4's per-row validation contract.
func ValidateRow(v interface{}) []string {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fmt.Sprintf("field %q failed %q constraint (value=%v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return messages
}
