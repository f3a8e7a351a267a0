package bdos

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cpmhost/mtcpm/fcb"
	"github.com/cpmhost/mtcpm/hal"
	"github.com/cpmhost/mtcpm/search"
)

// fcbName11 packs an FCB's name/type fields into the 11-byte canonical
// form the file cache keys its entries by.
func fcbName11(f *fcb.FCB) [11]byte {
	var n [11]byte
	copy(n[0:8], f.Name[:])
	copy(n[8:11], f.Type[:])
	return n
}

// setResultWithCount is setResult's short-read/short-write variant:
// unlike a plain result, H and B carry the actual transfer count rather
// than zero.
func setResultWithCount(b *BDOS, res, count uint8) {
	b.HAL.SetA(res)
	b.HAL.SetL(res)
	b.HAL.SetH(count)
	b.HAL.SetB(count)
	b.HAL.SetZeroFlag(res == 0)
}

// openOrCached returns the cached handle for f, opening it from the
// host filesystem and caching it if it isn't already open.
func (b *BDOS) openOrCached(f *fcb.FCB) (*os.File, error) {
	hash := f.Hash()
	name11 := fcbName11(f)
	if file := b.Cache.Get(hash, name11); file != nil {
		return file, nil
	}
	path, err := b.hostPath(f)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	b.Cache.Add(hash, name11, file)
	return file, nil
}

// bdosFileOpen implements F_OPEN (func 15).
func bdosFileOpen(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	f := b.fcbAt(addr)
	lastRecordRequested := f.Cr == 0xFF
	f.Ex, f.S1, f.S2, f.RC, f.Cr = 0, 0, 0, 0, 0

	if f.GetFileName() == "" {
		setResult(b.HAL, 0xFF)
		return nil
	}

	path, err := b.hostPath(&f)
	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}
	b.Cache.Add(f.Hash(), fcbName11(&f), file)

	fi, err := file.Stat()
	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}
	size := fi.Size()
	records := uint8(size / blkSize)
	if size%blkSize != 0 {
		records++
	}
	if records > maxRC {
		records = maxRC
	}
	f.RC = records

	if lastRecordRequested {
		f.Cr = uint8((size / 16384) % 128)
	}

	b.putFCB(addr, f)
	setResult(b.HAL, 0x00)
	return nil
}

// bdosFileClose implements F_CLOSE (func 16).
func bdosFileClose(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	f := b.fcbAt(addr)

	file := b.Cache.Get(f.Hash(), fcbName11(&f))
	if file != nil {
		b.Cache.Remove(file)
		file.Close()
	}
	setResult(b.HAL, 0x00)
	return nil
}

// bdosFindFirst implements F_SFIRST (func 17): prime the search engine
// from the FCB and run one step.
func bdosFindFirst(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	f := b.fcbAt(addr)

	drive := b.resolveDrive(&f)
	dirPath, err := b.Mount.HostPath(drive)
	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}
	mountRoot, err := b.Mount.Root(drive)
	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}

	st, err := search.First(dirPath, fcbName11(&f), true, true, mountRoot)
	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}
	b.search = st
	return b.searchNext()
}

// bdosFindNext implements F_SNEXT (func 18).
func bdosFindNext(ctx context.Context, b *BDOS) error {
	if b.search == nil {
		setResult(b.HAL, search.NoMoreFiles)
		return nil
	}
	return b.searchNext()
}

// searchNext drives the shared search iterator one step and copies the
// produced record into the guest DMA. The DMA holds four 32-byte
// directory slots: an ordinary record lands in slot 0 with the unused
// slots filled with the 0xE5 empty sentinel (A=0), a datestamp record
// lands in slot 3 and reports directory code A=3 so the guest knows
// which slot to read it from.
func (b *BDOS) searchNext() error {
	rec, ok := b.search.Next()
	if !ok {
		b.search = nil
		setResult(b.HAL, search.NoMoreFiles)
		return nil
	}
	if rec.IsSFCB {
		b.HAL.Memory.PutRange(b.SCB.DMA+96, rec.Bytes[:]...)
		setResult(b.HAL, 0x03)
		return nil
	}
	b.HAL.Memory.PutRange(b.SCB.DMA, rec.Bytes[:]...)
	b.HAL.Memory.FillMem(b.SCB.DMA+32, 96, 0xE5)
	setResult(b.HAL, 0x00)
	return nil
}

// bdosDeleteFile implements F_DELETE (func 19).
func bdosDeleteFile(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	f := b.fcbAt(addr)

	drive := b.resolveDrive(&f)
	dirPath, err := b.Mount.HostPath(drive)
	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}

	names, err := search.MatchingHostNames(dirPath, fcbName11(&f), true)
	if err != nil || len(names) == 0 {
		setResult(b.HAL, 0xFF)
		return nil
	}

	for _, name := range names {
		deleted := fcb.FromString(name)
		if file := b.Cache.Get(deleted.Hash(), fcbName11(&deleted)); file != nil {
			b.Cache.Remove(file)
			file.Close()
		}
		path := filepath.Join(dirPath, name)
		if err := os.RemoveAll(path); err != nil {
			setResult(b.HAL, 0xFF)
			return nil
		}
	}
	setResult(b.HAL, 0x00)
	return nil
}

// bdosReadSeq implements F_READ (func 20): sequential read of
// multisector_count * 128 bytes from EX/S2/CR's byte offset.
func bdosReadSeq(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	f := b.fcbAt(addr)

	file, err := b.openOrCached(&f)
	if err != nil {
		return b.doError(Error{RegisterA: 0xFF, Message: "File not open"})
	}

	offset := f.GetAbsolute()
	want := int(b.SCB.MultiSectorCount) * blkSize
	buf := make([]byte, want)
	n, err := file.ReadAt(buf, offset)
	if n == 0 && (err == io.EOF || err != nil) {
		setResult(b.HAL, 0x01)
		return nil
	}

	b.HAL.Memory.PutRange(b.SCB.DMA, buf[:n]...)

	recs := uint8(n / blkSize)
	if n%blkSize != 0 {
		recs++
	}
	f.SetAbsolute(offset + int64(recs)*blkSize)
	b.putFCB(addr, f)

	if err == io.EOF || n < want {
		setResultWithCount(b, 0x01, recs)
		return nil
	}
	setResult(b.HAL, 0x00)
	return nil
}

// bdosWriteSeq implements F_WRITE (func 21).
func bdosWriteSeq(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	f := b.fcbAt(addr)

	file, err := b.openOrCached(&f)
	if err != nil {
		return b.doError(Error{RegisterA: 0xFF, Message: "File not open"})
	}

	offset := f.GetAbsolute()
	want := int(b.SCB.MultiSectorCount) * blkSize
	buf := b.HAL.Memory.GetRange(b.SCB.DMA, want)

	n, err := file.WriteAt(buf, offset)
	recs := uint8(n / blkSize)
	if n%blkSize != 0 {
		recs++
	}
	f.SetAbsolute(offset + int64(recs)*blkSize)
	b.putFCB(addr, f)

	if err != nil {
		setResultWithCount(b, 0x02, recs)
		return nil
	}
	setResult(b.HAL, 0x00)
	return nil
}

// bdosMakeFile implements F_MAKE (func 22): FCB drive-byte bit 7 marks
// directory creation; otherwise create a new file exclusively.
func bdosMakeFile(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	f := b.fcbAt(addr)

	isDir := f.Drive&0x80 != 0
	f.Drive &^= 0x80

	drive := b.resolveDrive(&f)
	dirPath, err := b.Mount.HostPath(drive)
	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}
	name := f.GetFileName()
	if name == "" {
		setResult(b.HAL, 0xFF)
		return nil
	}
	path := filepath.Join(dirPath, name)

	if isDir {
		if err := os.Mkdir(path, 0755); err != nil {
			setResult(b.HAL, 0xFF)
			return nil
		}
		setResult(b.HAL, 0x00)
		return nil
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}
	f.Ex, f.S1, f.S2, f.RC, f.Cr = 0, 0, 0, 0, 0
	b.Cache.Add(f.Hash(), fcbName11(&f), file)
	b.putFCB(addr, f)
	setResult(b.HAL, 0x00)
	return nil
}

// bdosRenameFile implements F_RENAME (func 23): the new name lives in
// the FCB's block-pointer area (+16..+23 name, +24..+26 type), the
// standard CP/M rename convention.
func bdosRenameFile(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	f := b.fcbAt(addr)

	oldPath, err := b.hostPath(&f)
	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}
	if _, err := os.Stat(oldPath); err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}

	newName := strings.TrimRight(string(f.Al[0:8]), " \x00")
	newType := strings.TrimRight(string(f.Al[8:11]), " \x00")
	newFile := newName
	if newType != "" {
		newFile += "." + newType
	}

	drive := b.resolveDrive(&f)
	dirPath, err := b.Mount.HostPath(drive)
	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}
	newPath := filepath.Join(dirPath, newFile)

	if _, err := os.Stat(newPath); err == nil {
		return b.doError(Error{RegisterA: 0x08, RegisterH: 0x08, Message: "File exists"})
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}
	setResult(b.HAL, 0x00)
	return nil
}

// bdosReadRand implements F_READRAND (func 33).
func bdosReadRand(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	f := b.fcbAt(addr)

	file, err := b.openOrCached(&f)
	if err != nil {
		return b.doError(Error{RegisterA: 0xFF, Message: "File not open"})
	}

	offset := int64(f.GetRandomRecord()) * blkSize
	want := int(b.SCB.MultiSectorCount) * blkSize
	buf := make([]byte, want)
	n, err := file.ReadAt(buf, offset)
	if n == 0 && (err == io.EOF || err != nil) {
		setResult(b.HAL, 0x01)
		return nil
	}
	b.HAL.Memory.PutRange(b.SCB.DMA, buf[:n]...)

	f.SetAbsolute(offset)
	b.putFCB(addr, f)

	if err == io.EOF {
		setResult(b.HAL, 0x01)
		return nil
	}
	setResult(b.HAL, 0x00)
	return nil
}

// bdosWriteRand implements F_WRITERAND (func 34).
func bdosWriteRand(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	f := b.fcbAt(addr)

	file, err := b.openOrCached(&f)
	if err != nil {
		return b.doError(Error{RegisterA: 0xFF, Message: "File not open"})
	}

	offset := int64(f.GetRandomRecord()) * blkSize
	want := int(b.SCB.MultiSectorCount) * blkSize
	buf := b.HAL.Memory.GetRange(b.SCB.DMA, want)

	_, err = file.WriteAt(buf, offset)
	f.SetAbsolute(offset)
	b.putFCB(addr, f)

	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}
	setResult(b.HAL, 0x00)
	return nil
}

// bdosFileSize implements F_SIZE (func 35).
func bdosFileSize(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	f := b.fcbAt(addr)

	path, err := b.hostPath(&f)
	if err == nil {
		if fi, err := os.Stat(path); err == nil {
			records := (fi.Size() + blkSize - 1) / blkSize
			f.SetRandomRecord(uint32(records))
			b.putFCB(addr, f)
			setResult(b.HAL, 0x00)
			return nil
		}
	}
	f.SetRandomRecord(0)
	b.putFCB(addr, f)
	setResult(b.HAL, 0xFF)
	return nil
}

// bdosSetRandomRecord implements F_RANDREC (func 36).
func bdosSetRandomRecord(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	f := b.fcbAt(addr)
	f.SetRandomRecord(uint32(f.GetAbsolute() / blkSize))
	b.putFCB(addr, f)
	setResult(b.HAL, 0x00)
	return nil
}

// bdosLoadOverlay implements F_LOADOVERLAY (func 59): load a RSX-style
// overlay image into memory at the address packed into R0/R1.
func bdosLoadOverlay(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	f := b.fcbAt(addr)

	if strings.TrimRight(string(f.Type[:]), " ") == "PRL" {
		setResult(b.HAL, 0xFF)
		return nil
	}

	path, err := b.hostPath(&f)
	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}

	tpaSize := int(b.SCB.TPATop) - hal.TPABase
	if len(data) > tpaSize {
		setResult(b.HAL, 0xFF)
		return nil
	}

	loadAddr := uint16(f.R0) | uint16(f.R1)<<8
	b.HAL.Memory.LoadBytes(loadAddr, data)
	setResult(b.HAL, 0x00)
	return nil
}

// bdosTruncate implements F_TRUNCATE (func 99): truncate to
// (random_record + 1) * 128 bytes.
func bdosTruncate(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	f := b.fcbAt(addr)

	path, err := b.hostPath(&f)
	if err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}
	size := int64(f.GetRandomRecord()+1) * blkSize
	if err := os.Truncate(path, size); err != nil {
		setResult(b.HAL, 0xFF)
		return nil
	}
	setResult(b.HAL, 0x00)
	return nil
}

// readCString reads a NUL-terminated guest string starting at addr.
func (b *BDOS) readCString(addr uint16) string {
	n := b.HAL.Memory.StrLen(addr)
	return string(b.HAL.Memory.GetRange(addr, n))
}

// bdosCopyFile implements the 0xD4 extension: HL=source path (may
// contain * / ? wildcards in the filename), DE=destination path, bit 0
// of B enables overwrite, bit 1 requests progress display (a no-op
// here: this emulator has no CCP-side progress hook wired into BDOS).
func bdosCopyFile(ctx context.Context, b *BDOS) error {
	srcSpec := b.readCString(b.HAL.GetHL())
	dstSpec := b.readCString(b.HAL.GetDE())
	overwrite := b.HAL.GetB()&0x01 != 0

	srcHost, _, err := b.Mount.Resolve(int(b.SCB.CurrentDrive), srcSpec)
	if err != nil {
		b.HAL.SetA(1)
		return nil
	}
	dstHost, _, err := b.Mount.Resolve(int(b.SCB.CurrentDrive), dstSpec)
	if err != nil {
		b.HAL.SetA(2)
		return nil
	}

	srcDir := filepath.Dir(srcHost)
	pattern := filepath.Base(srcHost)

	if strings.ContainsAny(pattern, "*?") {
		packed, _ := fcb.ExpandFilename(pattern, false)
		names, err := search.MatchingHostNames(srcDir, packed, false)
		if err != nil || len(names) == 0 {
			b.HAL.SetA(1)
			return nil
		}
		for _, name := range names {
			dst := dstHost
			if fi, err := os.Stat(dstHost); err == nil && fi.IsDir() {
				dst = filepath.Join(dstHost, name)
			}
			if res := copyOneFile(filepath.Join(srcDir, name), dst, overwrite); res != 0 {
				b.HAL.SetA(res)
				return nil
			}
		}
		b.HAL.SetA(0)
		return nil
	}

	if srcHost == dstHost {
		b.HAL.SetA(4)
		return nil
	}
	if fi, err := os.Stat(dstHost); err == nil && fi.IsDir() {
		dstHost = filepath.Join(dstHost, filepath.Base(srcHost))
	}
	b.HAL.SetA(copyOneFile(srcHost, dstHost, overwrite))
	return nil
}

// copyOneFile copies a single file, honouring the same result codes
// bdosCopyFile reports: 0 ok, 1 src missing, 2 dst path missing, 3 dst
// exists and overwrite is disallowed, 4 src equals dst.
func copyOneFile(src, dst string, overwrite bool) uint8 {
	if src == dst {
		return 4
	}
	in, err := os.Open(src)
	if err != nil {
		return 1
	}
	defer in.Close()

	if !overwrite {
		if _, err := os.Stat(dst); err == nil {
			return 3
		}
	}
	if _, err := os.Stat(filepath.Dir(dst)); err != nil {
		return 2
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 2
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return 2
	}
	return 0
}

// bdosChangeDir implements the 0xD5 extension: DE points to a
// zero-terminated path.
func bdosChangeDir(ctx context.Context, b *BDOS) error {
	path := b.readCString(b.HAL.GetDE())
	if err := b.Mount.ChangeDir(int(b.SCB.CurrentDrive), path); err != nil {
		b.HAL.SetA(1)
		return nil
	}
	b.HAL.SetA(0)
	return nil
}
