package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-01-01", "2024-01-01", true},
		{"2024-12-31", "2024-12-31", true},
		{"2024-01-01T15:04:05Z", "2024-01-01", true}, // timestamp truncated
		{"2024-13-01", "", false},
		{"yesterday", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("ParseDate(%q) unexpected error: %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("ParseDate(%q) expected error", tc.in)
			}
			continue
		}
		if d.String() != tc.want {
			t.Fatalf("ParseDate(%q) = %q, want %q", tc.in, d.String(), tc.want)
		}
	}
}

func TestDateAddNormalizes(t *testing.T) {
	d := NewDate(2024, time.January, 31).Add(1)
	if d.String() != "2024-02-01" {
		t.Fatalf("Add(1) = %s, want 2024-02-01", d)
	}
	d = NewDate(2024, time.March, 1).Add(-1)
	if d.String() != "2024-02-29" { // leap year
		t.Fatalf("Add(-1) = %s, want 2024-02-29", d)
	}
}

func TestDateOrdering(t *testing.T) {
	a := MustParseDate("2024-01-01")
	b := MustParseDate("2024-01-02")
	if !a.Before(b) || b.Before(a) {
		t.Fatal("expected a < b")
	}
	if !a.Equal(MustParseDate("2024-01-01")) {
		t.Fatal("expected equality with same calendar day")
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	raw, err := json.Marshal(MustParseDate("2024-06-15"))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `"2024-06-15"` {
		t.Fatalf("marshal = %s", raw)
	}

	var d Date
	if err := json.Unmarshal([]byte(`"2024-06-15"`), &d); err != nil {
		t.Fatal(err)
	}
	if d.String() != "2024-06-15" {
		t.Fatalf("unmarshal = %s", d)
	}

	var zero Date
	if err := json.Unmarshal([]byte(`""`), &zero); err != nil {
		t.Fatal(err)
	}
	if !zero.IsZero() {
		t.Fatal("empty string should unmarshal to the zero date")
	}
}
