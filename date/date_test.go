package date

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Date
		err  bool
	}{
		{"2023-01-31", New(2023, time.January, 31), false},
		{"2023-1-3", New(2023, time.January, 3), false},
		{"not-a-date", Date{}, true},
	}
	for _, tc := range tests {
		got, err := Parse(tc.in)
		if (err != nil) != tc.err {
			t.Errorf("Parse(%q) error = %v, want error %v", tc.in, err, tc.err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseUS(t *testing.T) {
	got, err := ParseUS("03/19/2021")
	if err != nil {
		t.Fatalf("ParseUS() error = %v", err)
	}
	if want := New(2021, time.March, 19); got != want {
		t.Errorf("ParseUS() = %v, want %v", got, want)
	}
}

func TestAdd_Normalizes(t *testing.T) {
	d := New(2023, time.December, 31).Add(1)
	if want := New(2024, time.January, 1); d != want {
		t.Errorf("Add(1) = %v, want %v", d, want)
	}
}

func TestAddYears(t *testing.T) {
	d := New(2022, time.March, 15).AddYears(-1)
	if want := New(2021, time.March, 15); d != want {
		t.Errorf("AddYears(-1) = %v, want %v", d, want)
	}
}

func TestBeforeAfter(t *testing.T) {
	a := New(2021, time.June, 1)
	b := New(2022, time.June, 1)
	if !a.Before(b) || b.Before(a) {
		t.Errorf("Before() inconsistent for %v and %v", a, b)
	}
	if !b.After(a) || a.After(b) {
		t.Errorf("After() inconsistent for %v and %v", a, b)
	}
}
