package values

import (
	"fmt"
	"regexp"
	"time"
)

// ChargeMonth represents the calendar month a bill accumulates against,
// in YYYYMM form.
type ChargeMonth struct {
	value string
}

var chargeMonthPattern = regexp.MustCompile(`^\d{6}$`)

// NewChargeMonth creates a ChargeMonth from a YYYYMM string
func NewChargeMonth(value string) (ChargeMonth, error) {
	if !chargeMonthPattern.MatchString(value) {
		return ChargeMonth{}, fmt.Errorf("invalid charge month %q: must be YYYYMM", value)
	}
	if _, err := time.Parse("200601", value); err != nil {
		return ChargeMonth{}, fmt.Errorf("invalid charge month %q: %w", value, err)
	}
	return ChargeMonth{value: value}, nil
}

// MustNewChargeMonth creates a ChargeMonth and panics on error (for constants/tests)
func MustNewChargeMonth(value string) ChargeMonth {
	m, err := NewChargeMonth(value)
	if err != nil {
		panic(err)
	}
	return m
}

// ChargeMonthOf returns the charge month containing t
func ChargeMonthOf(t time.Time) ChargeMonth {
	return ChargeMonth{value: t.Format("200601")}
}

// String returns the YYYYMM representation
func (m ChargeMonth) String() string {
	return m.value
}

// IsZero reports whether the value is unset
func (m ChargeMonth) IsZero() bool {
	return m.value == ""
}

// Time returns midnight on the first day of the month, UTC
func (m ChargeMonth) Time() time.Time {
	t, _ := time.Parse("200601", m.value)
	return t
}

// Next returns the following calendar month
func (m ChargeMonth) Next() ChargeMonth {
	return ChargeMonth{value: m.Time().AddDate(0, 1, 0).Format("200601")}
}

// Prev returns the preceding calendar month
func (m ChargeMonth) Prev() ChargeMonth {
	return ChargeMonth{value: m.Time().AddDate(0, -1, 0).Format("200601")}
}

// Equal reports whether two charge months are the same
func (m ChargeMonth) Equal(other ChargeMonth) bool {
	return m.value == other.value
}

// Contains reports whether t falls within the month
func (m ChargeMonth) Contains(t time.Time) bool {
	return t.Format("200601") == m.value
}

// LastDay returns the number of days in the month
func (m ChargeMonth) LastDay() int {
	first := m.Time()
	return first.AddDate(0, 1, -1).Day()
}

// MarshalText implements encoding.TextMarshaler
func (m ChargeMonth) MarshalText() ([]byte, error) {
	return []byte(m.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *ChargeMonth) UnmarshalText(data []byte) error {
	parsed, err := NewChargeMonth(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
