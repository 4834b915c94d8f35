package cookies

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spf13/afero"

	"github.com/gurl-cli/gurl/pkg/logger"
)

var (
	safariFileMagic = []byte("cook")
	safariPageMagic = []byte{0x00, 0x00, 0x01, 0x00}
)

// Safari record flag bits.
const (
	safariFlagSecure   = 0x1
	safariFlagHTTPOnly = 0x4
)

// readSafariStore parses a Cookies.binarycookies file. The format is
// page oriented: a big-endian header lists page sizes, each page lists
// little-endian record offsets, and each record stores its fields as
// NUL-terminated strings at record-relative offsets.
//
// Every declared length and offset is checked against the bytes
// actually present before it is followed; any mismatch is
// ErrCorruptStore rather than a truncated or out-of-bounds read.
func readSafariStore(fs afero.Fs, loc *StoreLocation, log logger.Logger) ([]RawCookie, int64, error) {
	data, err := afero.ReadFile(fs, loc.StorePath)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrIO, loc.StorePath, err)
	}
	records, err := parseBinaryCookies(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", loc.StorePath, err)
	}
	log.Debug("parsed %d safari cookie records", len(records))
	return records, 0, nil
}

func parseBinaryCookies(data []byte) ([]RawCookie, error) {
	r := &byteReader{data: data}

	magic, err := r.read(4)
	if err != nil || !bytes.Equal(magic, safariFileMagic) {
		return nil, fmt.Errorf("%w: bad file magic", ErrCorruptStore)
	}
	pageCount, err := r.readU32BE()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated page count", ErrCorruptStore)
	}
	// Each entry in the size table is 4 bytes, so the declared count
	// is bounded by the bytes left. Checked before allocating.
	if uint64(pageCount)*4 > uint64(r.remaining()) {
		return nil, fmt.Errorf("%w: page count exceeds file length", ErrCorruptStore)
	}

	pageSizes := make([]uint32, 0, pageCount)
	var total uint64
	for i := uint32(0); i < pageCount; i++ {
		size, err := r.readU32BE()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated page size table", ErrCorruptStore)
		}
		pageSizes = append(pageSizes, size)
		total += uint64(size)
	}
	if uint64(r.pos)+total > uint64(len(data)) {
		return nil, fmt.Errorf("%w: declared page lengths exceed file length", ErrCorruptStore)
	}

	var records []RawCookie
	for i, size := range pageSizes {
		page, _ := r.read(int(size))
		pageRecords, err := parseSafariPage(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		records = append(records, pageRecords...)
	}
	return records, nil
}

func parseSafariPage(page []byte) ([]RawCookie, error) {
	r := &byteReader{data: page}

	magic, err := r.read(4)
	if err != nil || !bytes.Equal(magic, safariPageMagic) {
		return nil, fmt.Errorf("%w: bad page magic", ErrCorruptStore)
	}
	recordCount, err := r.readU32LE()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated record count", ErrCorruptStore)
	}
	if uint64(recordCount)*4 > uint64(r.remaining()) {
		return nil, fmt.Errorf("%w: record count exceeds page length", ErrCorruptStore)
	}

	offsets := make([]uint32, 0, recordCount)
	for i := uint32(0); i < recordCount; i++ {
		off, err := r.readU32LE()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated record offset table", ErrCorruptStore)
		}
		offsets = append(offsets, off)
	}

	var records []RawCookie
	for i, off := range offsets {
		if uint64(off)+4 > uint64(len(page)) {
			return nil, fmt.Errorf("%w: record %d offset beyond page", ErrCorruptStore, i)
		}
		size := binary.LittleEndian.Uint32(page[off:])
		if uint64(off)+uint64(size) > uint64(len(page)) {
			return nil, fmt.Errorf("%w: record %d length beyond page", ErrCorruptStore, i)
		}
		rec, err := parseSafariRecord(page[off : uint64(off)+uint64(size)])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records, nil
}

func parseSafariRecord(record []byte) (*RawCookie, error) {
	r := &byteReader{data: record}

	// Layout: size, unknown, flags, unknown, then four field offsets,
	// 8 reserved bytes, expiry and creation as float64 seconds since
	// 2001-01-01.
	if err := r.skip(8); err != nil {
		return nil, fmt.Errorf("%w: truncated record header", ErrCorruptStore)
	}
	flags, err := r.readU32LE()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated record flags", ErrCorruptStore)
	}
	if err := r.skip(4); err != nil {
		return nil, fmt.Errorf("%w: truncated record header", ErrCorruptStore)
	}
	var fieldOffsets [4]uint32 // domain, name, path, value
	for i := range fieldOffsets {
		off, err := r.readU32LE()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated field offsets", ErrCorruptStore)
		}
		fieldOffsets[i] = off
	}
	if err := r.skip(8); err != nil {
		return nil, fmt.Errorf("%w: truncated record header", ErrCorruptStore)
	}
	expiry, err := r.readF64LE()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated expiry", ErrCorruptStore)
	}

	domain, err := cstringAt(record, fieldOffsets[0])
	if err != nil {
		return nil, err
	}
	name, err := cstringAt(record, fieldOffsets[1])
	if err != nil {
		return nil, err
	}
	path, err := cstringAt(record, fieldOffsets[2])
	if err != nil {
		return nil, err
	}
	value, err := cstringAt(record, fieldOffsets[3])
	if err != nil {
		return nil, err
	}

	if domain == "" || name == "" {
		return nil, nil
	}

	rec := &RawCookie{
		Host:     domain,
		Path:     path,
		Name:     name,
		Value:    []byte(value),
		Secure:   flags&safariFlagSecure != 0,
		HttpOnly: flags&safariFlagHTTPOnly != 0,
	}
	// NaN, infinite, or absurdly large expiries convert to undefined
	// int64 values; treat them as session cookies.
	if expiry > 0 && !math.IsInf(expiry, 0) && !math.IsNaN(expiry) && expiry < 1<<62 {
		rec.Expiry = safariEpochOffset + int64(expiry)
	}
	return rec, nil
}

// cstringAt reads a NUL-terminated string at a record-relative offset.
func cstringAt(record []byte, offset uint32) (string, error) {
	if uint64(offset) >= uint64(len(record)) {
		return "", fmt.Errorf("%w: string offset beyond record", ErrCorruptStore)
	}
	rest := record[offset:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string", ErrCorruptStore)
	}
	return string(rest[:end]), nil
}

// byteReader is a bounds-checked cursor over a byte slice.
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) remaining() int {
	return len(r.data) - r.pos
}

func (r *byteReader) read(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, fmt.Errorf("%w: truncated data", ErrCorruptStore)
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *byteReader) skip(n int) error {
	_, err := r.read(n)
	return err
}

func (r *byteReader) readU32BE() (uint32, error) {
	b, err := r.read(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *byteReader) readU32LE() (uint32, error) {
	b, err := r.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *byteReader) readF64LE() (float64, error) {
	b, err := r.read(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}
