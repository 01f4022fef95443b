// Package pagefile implements the paged, checksummed binary container
// that backs an E57 image file.
//
// The container is modeled as an array of fixed-size physical pages, each
// carrying a trailing CRC-32C checksum over its payload. Callers address
// content through a logical byte stream that has the checksum trailers
// transparently removed.
package pagefile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// DefaultPageSize is the page size used by newly created containers
// when the caller does not request a specific size.
const DefaultPageSize = 1024

// checksumSize is the width of the trailing CRC-32C on every page.
const checksumSize = 4

// HeaderSize is the width, in bytes, of the fixed file header that
// occupies the start of page 0.
const HeaderSize = 48

// magic is the fixed 8-byte tag at the start of every container.
var magic = [8]byte{'A', 'S', 'T', 'M', '-', 'E', '5', '7'}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// ErrChecksum is returned (wrapped) when a page's trailing CRC-32C does
// not match its payload.
var ErrChecksum = errors.New("pagefile: checksum mismatch")

// File is the minimal random-access backing store a PageFile needs.
// *os.File satisfies it; tests may supply an in-memory implementation.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Truncate(size int64) error
}

// Header is the normative 48-byte container header living at the
// start of page 0.
type Header struct {
	VersionMajor       uint32
	VersionMinor       uint32
	FilePhysicalLength uint64
	XMLLogicalOffset   uint64
	XMLLogicalLength   uint64
	PageSize           uint64
}

// Marshal encodes h into a HeaderSize-byte buffer.
func (h Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:8], magic[:])
	binary.LittleEndian.PutUint32(buf[8:12], h.VersionMajor)
	binary.LittleEndian.PutUint32(buf[12:16], h.VersionMinor)
	binary.LittleEndian.PutUint64(buf[16:24], h.FilePhysicalLength)
	binary.LittleEndian.PutUint64(buf[24:32], h.XMLLogicalOffset)
	binary.LittleEndian.PutUint64(buf[32:40], h.XMLLogicalLength)
	binary.LittleEndian.PutUint64(buf[40:48], h.PageSize)
	return buf
}

// UnmarshalHeader decodes a HeaderSize-byte buffer produced by Marshal.
func UnmarshalHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < HeaderSize {
		return h, fmt.Errorf("pagefile: short header (%d bytes)", len(buf))
	}
	if string(buf[0:8]) != string(magic[:]) {
		return h, fmt.Errorf("pagefile: bad magic %q", buf[0:8])
	}
	h.VersionMajor = binary.LittleEndian.Uint32(buf[8:12])
	h.VersionMinor = binary.LittleEndian.Uint32(buf[12:16])
	h.FilePhysicalLength = binary.LittleEndian.Uint64(buf[16:24])
	h.XMLLogicalOffset = binary.LittleEndian.Uint64(buf[24:32])
	h.XMLLogicalLength = binary.LittleEndian.Uint64(buf[32:40])
	h.PageSize = binary.LittleEndian.Uint64(buf[40:48])
	return h, nil
}

// PageFile is a checksummed, page-structured random-access byte
// container. All public offsets are logical: the checksum trailer
// bytes at the end of every physical page are invisible to callers.
type PageFile struct {
	f          File
	pageSize   int64
	payload    int64 // pageSize - checksumSize
	physLength int64 // physical bytes committed so far
	cursor     int64 // logical write cursor (append-only)
}

// Create initializes a brand-new PageFile over f, writing a page 0
// with the given header. pageSize of 0 selects DefaultPageSize.
func Create(f File, pageSize int64, h Header) (*PageFile, error) {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if pageSize <= checksumSize+HeaderSize {
		return nil, fmt.Errorf("pagefile: page size %d too small", pageSize)
	}
	if err := f.Truncate(0); err != nil {
		return nil, err
	}
	pf := &PageFile{
		f:        f,
		pageSize: pageSize,
		payload:  pageSize - checksumSize,
	}
	h.PageSize = uint64(pageSize)
	if err := pf.WriteHeaderPage(h); err != nil {
		return nil, err
	}
	pf.physLength = pageSize
	pf.cursor = 0
	return pf, nil
}

// Open attaches to an existing PageFile image of the given physical
// length, reading (and verifying) its header page.
func Open(f File, physicalLength int64) (*PageFile, Header, error) {
	// page size is unknown until we decode the header, but the header
	// always lives in the first HeaderSize bytes of page 0 regardless
	// of page size, so read just that prefix first.
	probe := make([]byte, HeaderSize)
	if _, err := f.ReadAt(probe, 0); err != nil && err != io.EOF {
		return nil, Header{}, err
	}
	h, err := UnmarshalHeader(probe)
	if err != nil {
		return nil, Header{}, err
	}
	pageSize := int64(h.PageSize)
	if pageSize <= checksumSize+HeaderSize {
		return nil, Header{}, fmt.Errorf("pagefile: bad page size %d in header", pageSize)
	}
	pf := &PageFile{
		f:          f,
		pageSize:   pageSize,
		payload:    pageSize - checksumSize,
		physLength: physicalLength,
	}
	if _, err := pf.readAndVerifyPage(0); err != nil {
		return nil, Header{}, err
	}
	pf.cursor = 0
	if physicalLength > pageSize {
		// logical length is derived from physical length minus the
		// header page and one checksum trailer per remaining page.
		pages := physicalLength / pageSize
		pf.cursor = (pages - 1) * pf.payload
	}
	return pf, h, nil
}

// PageSize returns the physical page size, including its checksum trailer.
func (pf *PageFile) PageSize() int64 { return pf.pageSize }

// PayloadPerPage returns the number of logical bytes stored per page.
func (pf *PageFile) PayloadPerPage() int64 { return pf.payload }

// LogicalLength returns the current logical end-of-stream offset.
func (pf *PageFile) LogicalLength() int64 { return pf.cursor }

// PhysicalLength returns the current physical file size in bytes.
func (pf *PageFile) PhysicalLength() int64 { return pf.physLength }

func (pf *PageFile) pageIndex(logical int64) int64 { return logical / pf.payload }

func (pf *PageFile) physicalPageOffset(page int64) int64 { return page * pf.pageSize }

// readAndVerifyPage reads physical page `page` in full and verifies
// its trailing CRC-32C, returning the page's payload bytes.
func (pf *PageFile) readAndVerifyPage(page int64) ([]byte, error) {
	buf := make([]byte, pf.pageSize)
	off := pf.physicalPageOffset(page)
	n, err := pf.f.ReadAt(buf, off)
	if err != nil && !(err == io.EOF && int64(n) == pf.pageSize) {
		return nil, fmt.Errorf("pagefile: read page %d: %w", page, err)
	}
	payload := buf[:pf.payload]
	want := binary.LittleEndian.Uint32(buf[pf.payload:])
	got := crc32.Checksum(payload, castagnoli)
	if got != want {
		return nil, fmt.Errorf("%w: page %d (want %08x, got %08x)", ErrChecksum, page, want, got)
	}
	return payload, nil
}

func (pf *PageFile) writePage(page int64, payload []byte) error {
	if int64(len(payload)) != pf.payload {
		return fmt.Errorf("pagefile: internal error: short page payload %d", len(payload))
	}
	buf := make([]byte, pf.pageSize)
	copy(buf, payload)
	crc := crc32.Checksum(buf[:pf.payload], castagnoli)
	binary.LittleEndian.PutUint32(buf[pf.payload:], crc)
	off := pf.physicalPageOffset(page)
	if _, err := pf.f.WriteAt(buf, off); err != nil {
		return fmt.Errorf("pagefile: write page %d: %w", page, err)
	}
	end := off + pf.pageSize
	if end > pf.physLength {
		pf.physLength = end
	}
	return nil
}

// WriteHeaderPage (re)writes page 0 in its entirety. It is used once
// at creation time and again when the container is closed and the
// final header values (file length, XML section bounds) are known.
func (pf *PageFile) WriteHeaderPage(h Header) error {
	h.PageSize = uint64(pf.pageSize)
	payload := make([]byte, pf.payload)
	copy(payload, h.Marshal())
	return pf.writePage(0, payload)
}

// ReadHeaderPage re-reads and decodes page 0.
func (pf *PageFile) ReadHeaderPage() (Header, error) {
	payload, err := pf.readAndVerifyPage(0)
	if err != nil {
		return Header{}, err
	}
	return UnmarshalHeader(payload)
}

// AppendPages appends payload to the end of the logical stream. Page 0
// is reserved for the header and is not part of the logical stream, so
// the first append lands at logical offset 0 (physical page 1).
// len(payload) must be a multiple of
// PayloadPerPage() so that every append begins and ends on a page
// boundary; callers that need page-aligned framing (e.g. CompressedVector
// packets) are responsible for padding to that multiple.
func (pf *PageFile) AppendPages(payload []byte) (int64, error) {
	if len(payload) == 0 {
		return pf.cursor, nil
	}
	if int64(len(payload))%pf.payload != 0 {
		return 0, fmt.Errorf("pagefile: append length %d is not page-aligned (payload=%d)", len(payload), pf.payload)
	}
	start := pf.cursor
	page := pf.pageIndex(start) + 1 // +1 to skip the header page
	for off := 0; off < len(payload); off += int(pf.payload) {
		if err := pf.writePage(page, payload[off:off+int(pf.payload)]); err != nil {
			return 0, err
		}
		page++
	}
	pf.cursor += int64(len(payload))
	return start, nil
}

// ReadLogical fills dst starting at the given logical offset, verifying
// the checksum of every physical page it touches.
func (pf *PageFile) ReadLogical(dst []byte, logicalOffset int64) error {
	remaining := dst
	off := logicalOffset
	for len(remaining) > 0 {
		page := pf.pageIndex(off) + 1 // +1 to skip the header page
		payload, err := pf.readAndVerifyPage(page)
		if err != nil {
			return err
		}
		within := off % pf.payload
		n := copy(remaining, payload[within:])
		if n == 0 {
			return fmt.Errorf("pagefile: short read at logical offset %d", off)
		}
		remaining = remaining[n:]
		off += int64(n)
	}
	return nil
}

// Close closes the underlying file.
func (pf *PageFile) Close() error { return pf.f.Close() }
