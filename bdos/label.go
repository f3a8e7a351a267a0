package bdos

import (
	"context"

	"github.com/cpmhost/mtcpm/dirlabel"
)

// bdosGetLabel implements DIR_GETLABEL (func 100): report the current
// drive's directory-label flag byte in A (0 if the drive carries no
// label at all).
func bdosGetLabel(ctx context.Context, b *BDOS) error {
	root, err := b.Mount.Root(int(b.SCB.CurrentDrive))
	if err != nil {
		b.HAL.SetA(0)
		return nil
	}
	label, err := dirlabel.Read(root)
	if err != nil {
		b.HAL.SetA(0)
		return nil
	}
	b.HAL.SetA(label.Flags)
	return nil
}

// bdosSetLabel implements DIR_SETLABEL (func 101): E carries the new
// datestamp-policy flag bits for the current drive's label.
func bdosSetLabel(ctx context.Context, b *BDOS) error {
	root, err := b.Mount.Root(int(b.SCB.CurrentDrive))
	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}
	if err := dirlabel.Write(root, b.HAL.GetE(), b.HAL.Clock.Now()); err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}
	setResult(b.HAL, 0x00)
	return nil
}

// bdosLabelPassword implements DIR_LABELPASS (func 102). Directory
// label passwords gate nothing else in this emulator (file access
// itself never checks one), so this is a stub that reports success
// without persisting a password anywhere.
func bdosLabelPassword(ctx context.Context, b *BDOS) error {
	setResult(b.HAL, 0x00)
	return nil
}
