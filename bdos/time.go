package bdos

import (
	"context"

	"github.com/cpmhost/mtcpm/datetime"
)

// bdosSetDateTime implements T_SET (func 104): DE points to a 4-byte
// day(word)/hour(BCD)/minutes(BCD) record the SCB's clock is set from,
// and which is pushed out to the host clock the same way BIOS's
// SETTIM(0xFF) service does.
func bdosSetDateTime(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	buf := b.HAL.Memory.GetRange(addr, 4)
	var raw [4]byte
	copy(raw[:], buf)

	b.SCB.Date.DateTime = datetime.FromBytes(raw)
	b.HAL.Clock.Set(b.SCB.Date.DateTime)
	setResult(b.HAL, 0x00)
	return nil
}

// bdosGetDateTime implements T_GET (func 105): the wall clock is
// snapshot into the SCB and copied to the 4-byte buffer at DE (day
// word, BCD hour, BCD minutes); BCD seconds come back in A.
func bdosGetDateTime(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	b.SCB.Date.DateTime = b.HAL.Clock.Now()
	dt := b.SCB.Date.DateTime

	b.HAL.Memory.Set(addr, uint8(dt.DaysSince1978))
	b.HAL.Memory.Set(addr+1, uint8(dt.DaysSince1978>>8))
	b.HAL.Memory.Set(addr+2, dt.HourBCD)
	b.HAL.Memory.Set(addr+3, dt.MinutesBCD)
	setResult(b.HAL, dt.SecondsBCD)
	return nil
}
