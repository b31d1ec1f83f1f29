// Package jsontypes holds request field types that accept the loose
// formats mobile and web clients send.
package jsontypes

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidMoney = errors.New("invalid amount")
	ErrInvalidDate  = errors.New("invalid date, expected DD-MM-YYYY or YYYY-MM-DD")
)

// MaxMoney is the largest amount a NUMERIC(12,2) column holds
const MaxMoney = 9999999999.99

// Money is an amount sent either as a JSON number or a numeric string
type Money float64

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ErrInvalidMoney
		}
		return m.parse(strings.TrimSpace(s))
	}
	return m.parse(string(data))
}

func (m *Money) parse(s string) error {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) || v > MaxMoney {
		return ErrInvalidMoney
	}
	*m = Money(v)
	return nil
}

// Float64 returns the amount as a float64
func (m Money) Float64() float64 { return float64(m) }

var dateLayouts = []string{"02-01-2006", "2006-01-02", time.RFC3339}

// Date accepts DD-MM-YYYY, YYYY-MM-DD or a full RFC 3339 timestamp
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
			return nil
		}
		return ErrInvalidDate
	}
	if s == "" {
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// ParseDate parses s using the accepted layouts
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}
