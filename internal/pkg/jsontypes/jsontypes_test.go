package jsontypes

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMoneyAcceptsStringAndNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{`"50000"`, 50000, false},
		{`45000`, 45000, false},
		{`"1,250.50"`, 1250.5, false},
		{`"abc"`, 0, true},
		{`-5`, 0, true},
		{`"9999999999.99"`, 9999999999.99, false},
		{`"Inf"`, 0, true},
		{`"-Infinity"`, 0, true},
		{`"NaN"`, 0, true},
		{`"1e13"`, 0, true},
		{`99999999999999`, 0, true},
	}

	for _, tt := range tests {
		var m Money
		err := json.Unmarshal([]byte(tt.in), &m)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.in, err)
		}
		if m.Float64() != tt.want {
			t.Fatalf("%s: got %v, want %v", tt.in, m, tt.want)
		}
	}
}

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"14-03-2026", "2026-03-14", "2026-03-14T00:00:00Z"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%s: got %v, want %v", in, got, want)
		}
	}

	if _, err := ParseDate("03/14/2026"); err != ErrInvalidDate {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDateUnmarshalEmpty(t *testing.T) {
	var body struct {
		Start Date `json:"start"`
	}
	if err := json.Unmarshal([]byte(`{"start":""}`), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !body.Start.IsZero() {
		t.Fatal("expected zero date")
	}
}
