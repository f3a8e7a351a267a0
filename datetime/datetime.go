// Package datetime implements the CP/M-3 "days since 1978-01-01" date
// representation and its packed-BCD time-of-day companions.
//
// The conversion between a civil (Gregorian) calendar date and the
// day-count is the closed-form algorithm described at
// http://howardhinnant.github.io/date_algorithms.html, with the era
// offset re-based so that day zero falls on 1978-01-01 instead of
// 0000-03-01.
package datetime

import "time"

// dateBase is the number of civil days between 0000-03-01 and
// 1978-01-01, the CP/M-3 epoch (day 0 of SCB_DATEDAYS_W).
const dateBase = 722390

// DaysFromCivil returns the number of days since the CP/M-3 epoch
// (1978-01-01 = 0) for the given civil calendar date.
//
// Preconditions: m is in [1,12], d is in [1, last_day_of_month(y,m)].
func DaysFromCivil(y int32, m, d uint32) int32 {
	if y <= 0 && m == 0 && d == 0 {
		return 0
	}
	yy := y
	if m <= 2 {
		yy--
	}
	var era int32
	if yy >= 0 {
		era = yy / 400
	} else {
		era = (yy - 399) / 400
	}
	yoe := uint32(yy - era*400)
	mAdj := int32(9)
	if m > 2 {
		mAdj = -3
	}
	doy := (153*(uint32(int32(m)+mAdj)) + 2) / 5
	doy += d - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + int32(doe) - dateBase
}

// CivilFromDays returns the civil calendar date for the given number of
// days since the CP/M-3 epoch (1978-01-01 = 0).
func CivilFromDays(z int32) (y int32, m, d uint32) {
	z += dateBase
	var era int32
	if z >= 0 {
		era = z / 146097
	} else {
		era = (z - 146096) / 146097
	}
	doe := uint32(z - era*146097)
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	year := int32(yoe) + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	day := doy - (153*mp+2)/5 + 1
	var month uint32
	if mp < 10 {
		month = mp + 3
	} else {
		month = mp - 9
	}
	if month <= 2 {
		year++
	}
	return year, month, day
}

// ByteToBCD packs a decimal value in [0,99] into one packed-BCD byte.
func ByteToBCD(v uint8) uint8 {
	return (v % 10) | ((v / 10) << 4)
}

// BCDToByte unpacks a packed-BCD byte back to its decimal value.
func BCDToByte(v uint8) uint8 {
	return (v & 0x0F) + (v>>4)*10
}

// DateTime is the guest-visible CP/M-3 clock representation: a 16-bit day
// count plus packed-BCD hour/minute/second fields, exactly as stored in
// the SCB and in SFCB datestamp records.
type DateTime struct {
	DaysSince1978 uint16
	HourBCD       uint8
	MinutesBCD    uint8
	SecondsBCD    uint8
}

// Set populates a DateTime from a civil calendar date and time of day.
func (d *DateTime) Set(year int32, month, day uint32, hour, minutes, seconds uint8) {
	d.DaysSince1978 = uint16(DaysFromCivil(year, month, day))
	d.HourBCD = ByteToBCD(hour)
	d.MinutesBCD = ByteToBCD(minutes)
	d.SecondsBCD = ByteToBCD(seconds)
}

// Get decodes a DateTime back into a civil calendar date and time of day.
func (d *DateTime) Get() (year int32, month, day uint32, hour, minutes, seconds uint8) {
	hour = BCDToByte(d.HourBCD)
	minutes = BCDToByte(d.MinutesBCD)
	seconds = BCDToByte(d.SecondsBCD)
	year, month, day = CivilFromDays(int32(d.DaysSince1978))
	return
}

// Bytes returns the 4-byte little-endian-days + BCD encoding used both in
// the SCB (SCB_DATEDAYS_W/HOUR/MINUTES) and in SFCB datestamp records.
// Seconds are not part of it.
func (d *DateTime) Bytes() [4]byte {
	return [4]byte{
		uint8(d.DaysSince1978 & 0xFF),
		uint8(d.DaysSince1978 >> 8),
		d.HourBCD,
		d.MinutesBCD,
	}
}

// Clock is the host wall-clock source BIOS function 26 (TIME) consults
// when snapshotting into, or pushing back from, the SCB. Production code
// uses SystemClock; tests substitute a fixed value.
type Clock interface {
	Now() DateTime
	Set(DateTime)
}

// SystemClock is the default Clock, backed by the host's real time of
// day. Its Set is a no-op.
type SystemClock struct{}

// Now returns the current host time as a DateTime.
func (SystemClock) Now() DateTime {
	t := time.Now()
	var d DateTime
	d.Set(int32(t.Year()), uint32(t.Month()), uint32(t.Day()), uint8(t.Hour()), uint8(t.Minute()), uint8(t.Second()))
	return d
}

// Set is a no-op: this emulator does not attempt to adjust the host
// system clock from guest programs.
func (SystemClock) Set(DateTime) {}

// FromBytes decodes a DateTime from the 4-byte representation described
// by Bytes. Seconds are not present in the on-disk/SCB encoding and are
// left at zero.
func FromBytes(b [4]byte) DateTime {
	return DateTime{
		DaysSince1978: uint16(b[0]) | uint16(b[1])<<8,
		HourBCD:       b[2],
		MinutesBCD:    b[3],
	}
}
