package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

const (
	Office   Division = "Office"
	Personal Division = "Personal"
)

// EditWindow is how long a transaction stays mutable after creation.
const EditWindow = 12 * time.Hour

// AllSentinel disables a division or category filter.
const AllSentinel = "All"

type (
	TxType   string
	Division string

	Transaction struct {
		ID            string    `json:"id"`
		Type          TxType    `json:"type"`
		Division      Division  `json:"division"`
		Category      string    `json:"category"`
		Amount        Money     `json:"amount"`
		Description   string    `json:"description"`
		Date          time.Time `json:"date"`
		CreatedAt     time.Time `json:"createdAt"`
		EditableUntil time.Time `json:"editableUntil"`
	}

	// Filter narrows a ledger query. Zero values match everything.
	Filter struct {
		Division string
		Category string
		From     *time.Time
		To       *time.Time
	}

	// Patch carries the fields of a partial update. Nil means untouched.
	Patch struct {
		Type        *TxType
		Division    *Division
		Category    *string
		Amount      *Money
		Description *string
		Date        *time.Time
	}

	Stats struct {
		Income  Money `json:"income"`
		Expense Money `json:"expense"`
		Net     Money `json:"net"`
	}
)

var (
	ErrNotFound           = errors.New("transaction not found")
	ErrEditWindowExpired  = errors.New("edit window expired")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrTotalOverflow      = errors.New("total exceeds representable amount")
)

// ValidationError reports a malformed or missing input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

// NewValidationError builds a *ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

func (d Division) Valid() bool {
	return d == Office || d == Personal
}

// Editable reports whether the record may still be changed at now.
func (t Transaction) Editable(now time.Time) bool {
	return !now.After(t.EditableUntil)
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return NewValidationError("type", "must be one of income, expense")
	}
	if !t.Division.Valid() {
		return NewValidationError("division", "must be one of Office, Personal")
	}
	if strings.TrimSpace(t.Category) == "" {
		return NewValidationError("category", "is required")
	}
	if strings.TrimSpace(t.Description) == "" {
		return NewValidationError("description", "is required")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return NewValidationError("date", "is required")
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Type == nil && p.Division == nil && p.Category == nil &&
		p.Amount == nil && p.Description == nil && p.Date == nil
}

// Apply merges the set fields of p into t. Identity and window fields are
// never touched.
func (p Patch) Apply(t *Transaction) {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Division != nil {
		t.Division = *p.Division
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = p.Date.UTC()
	}
}

// Matches reports whether t passes every set criterion of f.
func (f Filter) Matches(t Transaction) bool {
	if f.Division != "" && string(t.Division) != f.Division {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.From != nil && t.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && t.Date.After(*f.To) {
		return false
	}
	return true
}

// Key returns a stable string for caching results of f.
func (f Filter) Key() string {
	var b strings.Builder
	b.WriteString("d=")
	b.WriteString(f.Division)
	b.WriteString("|c=")
	b.WriteString(f.Category)
	b.WriteString("|f=")
	if f.From != nil {
		b.WriteString(f.From.UTC().Format(time.RFC3339Nano))
	}
	b.WriteString("|t=")
	if f.To != nil {
		b.WriteString(f.To.UTC().Format(time.RFC3339Nano))
	}
	return b.String()
}

// Less orders transactions by date desc, then createdAt desc, then id.
func Less(a, b Transaction) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}
