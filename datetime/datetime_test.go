package datetime

import "testing"

// TestEpoch confirms 1978-01-01 is day zero of the CP/M-3 epoch.
func TestEpoch(t *testing.T) {
	if got := DaysFromCivil(1978, 1, 1); got != 0 {
		t.Fatalf("DaysFromCivil(1978,1,1) = %d, want 0", got)
	}

	y, m, d := CivilFromDays(0)
	if y != 1978 || m != 1 || d != 1 {
		t.Fatalf("CivilFromDays(0) = %d-%d-%d, want 1978-1-1", y, m, d)
	}
}

// TestRoundTrip exercises invariant #7: days_from_civil(civil_from_days(d)) == d.
func TestRoundTrip(t *testing.T) {
	for d := int32(-10000); d <= 10000; d += 37 {
		y, m, dd := CivilFromDays(d)
		back := DaysFromCivil(y, m, dd)
		if back != d {
			t.Fatalf("round-trip failed for day %d: got %d-%d-%d -> %d", d, y, m, dd, back)
		}
	}
}

// TestKnownDates cross-checks a handful of well-known dates.
func TestKnownDates(t *testing.T) {
	cases := []struct {
		y    int32
		m, d uint32
		days int32
	}{
		{1978, 1, 1, 0},
		{1978, 1, 2, 1},
		{1977, 12, 31, -1},
		{2000, 1, 1, 8035},
		{2000, 2, 29, 8094}, // leap day
	}

	for _, c := range cases {
		got := DaysFromCivil(c.y, c.m, c.d)
		if got != c.days {
			t.Fatalf("DaysFromCivil(%d,%d,%d) = %d, want %d", c.y, c.m, c.d, got, c.days)
		}
	}
}

// TestBCD exercises the packed-BCD helpers used for hour/minute/second.
func TestBCD(t *testing.T) {
	for v := uint8(0); v < 100; v++ {
		bcd := ByteToBCD(v)
		back := BCDToByte(bcd)
		if back != v {
			t.Fatalf("BCD round-trip failed for %d: got %d", v, back)
		}
	}
}

// TestDateTimeSetGet exercises the guest-visible DateTime wrapper.
func TestDateTimeSetGet(t *testing.T) {
	var dt DateTime
	dt.Set(2024, 3, 15, 13, 45, 9)

	y, m, d, hh, mm, ss := dt.Get()
	if y != 2024 || m != 3 || d != 15 {
		t.Fatalf("date mismatch: %d-%d-%d", y, m, d)
	}
	if hh != 13 || mm != 45 || ss != 9 {
		t.Fatalf("time mismatch: %02d:%02d:%02d", hh, mm, ss)
	}

	b := dt.Bytes()
	dt2 := FromBytes(b)
	if dt2.DaysSince1978 != dt.DaysSince1978 || dt2.HourBCD != dt.HourBCD || dt2.MinutesBCD != dt.MinutesBCD {
		t.Fatalf("Bytes/FromBytes round-trip mismatch")
	}
}
