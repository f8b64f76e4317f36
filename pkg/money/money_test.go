package money

import "testing"

func TestRoundHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{0.4, 0},
		{0.5, 1},
		{1.5, 2},
		{2.5, 3},
		{-0.5, -1},
		{-1.5, -2},
		{1049.999, 1050},
	}
	for _, tc := range cases {
		if got := Round(tc.in); got != tc.want {
			t.Fatalf("Round(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestToCents(t *testing.T) {
	if got := ToCents(19.99); got != 1999 {
		t.Fatalf("ToCents(19.99) = %d, want 1999", got)
	}
	if got := ToCents(0.005); got != 1 {
		t.Fatalf("ToCents(0.005) = %d, want 1", got)
	}
}

// The dollar round trip is lossy for sub-cent fractions. That is the
// documented behavior, not a bug to fix.
func TestRoundTripLosesSubCentPrecision(t *testing.T) {
	in := 10.004
	if got := FromCents(ToCents(in)); got == in {
		t.Fatalf("expected round trip of %v to lose precision, got %v", in, got)
	}
	if got := FromCents(ToCents(in)); got != 10.00 {
		t.Fatalf("FromCents(ToCents(%v)) = %v, want 10.00", in, got)
	}
}

func TestTax(t *testing.T) {
	if got := Tax(9000, 0.06); got != 540 {
		t.Fatalf("Tax(9000, 0.06) = %d, want 540", got)
	}
	if got := Tax(1999, 0.06); got != 120 {
		t.Fatalf("Tax(1999, 0.06) = %d, want 120", got)
	}
}

func TestFormat(t *testing.T) {
	if got := Format(1050); got != "$10.50" {
		t.Fatalf("Format(1050) = %q, want $10.50", got)
	}
	if got := Format(5); got != "$0.05" {
		t.Fatalf("Format(5) = %q, want $0.05", got)
	}
}
