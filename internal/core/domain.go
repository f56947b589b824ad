package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	PaymentKassa   PaymentType = "kassa"
	PaymentClick   PaymentType = "click"
	PaymentUzcard  PaymentType = "uzcard"
	PaymentHumo    PaymentType = "humo"
	PaymentXarajat PaymentType = "xarajat"

	ShiftOpen   ShiftStatus = "open"
	ShiftClosed ShiftStatus = "closed"

	// MaxDescriptionLength bounds the free-text description, embedded tag included.
	MaxDescriptionLength = 200
)

type (
	// PaymentType tags a transaction with the channel it went through.
	// Xarajat is the only expense type.
	PaymentType string

	ShiftStatus string

	// Shift is a bounded operating session during which transactions accumulate.
	Shift struct {
		ID              string      `json:"id"`
		AccountID       string      `json:"account_id"`
		Name            string      `json:"name,omitempty"`
		Status          ShiftStatus `json:"status"`
		OpenedAt        time.Time   `json:"opened_at"`
		ClosedAt        *time.Time  `json:"closed_at,omitempty"`
		StartingBalance Money       `json:"starting_balance"`
		EndingBalance   *Money      `json:"ending_balance,omitempty"`
	}

	// Transaction is a single monetary entry attached to a shift.
	// Description holds the stored text, which carries a "[Name]" tag when
	// Category.Source is CategoryEmbedded.
	Transaction struct {
		ID          string
		ShiftID     string
		Amount      Money
		Type        PaymentType
		Category    Category
		Description string
		Date        time.Time
	}

	// Session scopes ledger writes to one shift. Sessions over closed
	// shifts are read-only.
	Session struct {
		AccountID string
		ShiftID   string
		ReadOnly  bool
	}
)

var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidPaymentType = errors.New("unknown payment type")
	ErrShiftNotOpen       = errors.New("shift is not open")
	ErrReadOnlySession    = errors.New("session is read-only")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory      = errors.New("category name cannot be empty")
	ErrEmptyAccount       = errors.New("account id cannot be empty")
)

// PaymentTypes lists every payment type in display order.
var PaymentTypes = []PaymentType{PaymentKassa, PaymentClick, PaymentUzcard, PaymentHumo, PaymentXarajat}

// ParsePaymentType normalizes s and checks it names a known payment type.
func ParsePaymentType(s string) (PaymentType, error) {
	p := PaymentType(strings.ToLower(strings.TrimSpace(s)))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

func (p PaymentType) Validate() error {
	switch p {
	case PaymentKassa, PaymentClick, PaymentUzcard, PaymentHumo, PaymentXarajat:
		return nil
	default:
		return ErrInvalidPaymentType
	}
}

// IsExpense reports whether transactions of this type reduce profit.
func (p PaymentType) IsExpense() bool {
	return p == PaymentXarajat
}

func (p PaymentType) String() string {
	return string(p)
}

// IsOpen reports whether transactions may still be attached to the shift.
func (s Shift) IsOpen() bool {
	return s.Status == ShiftOpen
}

// Validate checks the fields a caller controls.
func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	if err := t.Type.Validate(); err != nil {
		return &ValidationError{Field: "type", Err: err}
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Err: ErrDescriptionTooLong}
	}
	return nil
}

// CategoryName returns the logical category regardless of how it is stored.
func (t Transaction) CategoryName() string {
	return t.Category.Name
}

// DisplayDescription returns the description with any embedded category tag removed.
func (t Transaction) DisplayDescription() string {
	if t.Category.Source != CategoryEmbedded {
		return t.Description
	}
	return StripCategoryTag(t.Description)
}

// Writable returns an error when the session cannot mutate the ledger.
func (s Session) Writable() error {
	if s.ReadOnly {
		return &ValidationError{Field: "session", Err: ErrReadOnlySession}
	}
	if s.ShiftID == "" {
		return &ValidationError{Field: "shift_id", Err: ErrShiftNotOpen}
	}
	return nil
}
