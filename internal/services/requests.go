package services

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"moneymanager/internal/core"
)

// CreateRequest is the payload accepted when recording a transaction.
type CreateRequest struct {
	Type        string      `json:"type" validate:"required,oneof=income expense"`
	Division    string      `json:"division" validate:"required,oneof=Office Personal"`
	Category    string      `json:"category" validate:"required,notblank"`
	Amount      *core.Money `json:"amount" validate:"required"`
	Description string      `json:"description" validate:"required,notblank"`
	Date        *core.Date  `json:"date"`
}

// UpdateRequest is a partial update. Absent fields are left untouched.
type UpdateRequest struct {
	Type        *string     `json:"type" validate:"omitempty,oneof=income expense"`
	Division    *string     `json:"division" validate:"omitempty,oneof=Office Personal"`
	Category    *string     `json:"category" validate:"omitempty,notblank"`
	Amount      *core.Money `json:"amount"`
	Description *string     `json:"description" validate:"omitempty,notblank"`
	Date        *core.Date  `json:"date"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest runs struct validation and converts failures into a
// *core.ValidationError naming the offending fields.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return core.NewValidationError("", err.Error())
	}
	if len(fieldErrs) == 1 {
		return core.NewValidationError(fieldErrs[0].Field(), fieldMessage(fieldErrs[0]))
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Field()+" "+fieldMessage(fe))
	}
	return core.NewValidationError("", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}

func (r CreateRequest) toTransaction() core.Transaction {
	tx := core.Transaction{
		Type:        core.TxType(r.Type),
		Division:    core.Division(r.Division),
		Category:    strings.TrimSpace(r.Category),
		Description: strings.TrimSpace(r.Description),
	}
	if r.Amount != nil {
		tx.Amount = abs(*r.Amount)
	}
	if r.Date != nil && !r.Date.IsZero() {
		tx.Date = r.Date.UTC().Truncate(time.Millisecond)
	}
	return tx
}

func (r UpdateRequest) toPatch() core.Patch {
	var p core.Patch
	if r.Type != nil {
		t := core.TxType(*r.Type)
		p.Type = &t
	}
	if r.Division != nil {
		d := core.Division(*r.Division)
		p.Division = &d
	}
	if r.Category != nil {
		c := strings.TrimSpace(*r.Category)
		p.Category = &c
	}
	if r.Amount != nil {
		a := abs(*r.Amount)
		p.Amount = &a
	}
	if r.Description != nil {
		d := strings.TrimSpace(*r.Description)
		p.Description = &d
	}
	if r.Date != nil && !r.Date.IsZero() {
		d := r.Date.UTC().Truncate(time.Millisecond)
		p.Date = &d
	}
	return p
}

func abs(m core.Money) core.Money {
	if m.Cents < 0 {
		return core.Money{Cents: -m.Cents}
	}
	return m
}
