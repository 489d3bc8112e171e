package ngsindex

import (
	"encoding/binary"
	"fmt"
	"io"
)

// BinReader decodes fixed-width values sequentially from a byte stream
// in a declared byte order, tracking the running offset.
type BinReader struct {
	reader io.Reader
	order  binary.ByteOrder
	offset int64
	buf    [8]byte
}

// NewBinReader wraps reader. All genomic index and BGZF structures are
// little-endian; callers pass binary.LittleEndian.
func NewBinReader(reader io.Reader, order binary.ByteOrder) *BinReader {
	return &BinReader{reader: reader, order: order}
}

// Offset is the number of bytes consumed so far.
func (b *BinReader) Offset() int64 {
	return b.offset
}

func (b *BinReader) read(n int) ([]byte, error) {
	if _, err := io.ReadFull(b.reader, b.buf[:n]); err != nil {
		return nil, fmt.Errorf("reading %d bytes at offset %d: %w", n, b.offset, err)
	}
	b.offset += int64(n)
	return b.buf[:n], nil
}

// ReadBytes reads exactly n bytes into a fresh slice.
func (b *BinReader) ReadBytes(n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(b.reader, out); err != nil {
		return nil, fmt.Errorf("reading %d bytes at offset %d: %w", n, b.offset, err)
	}
	b.offset += int64(n)
	return out, nil
}

// ReadString reads n bytes and returns them as a string.
func (b *BinReader) ReadString(n int) (string, error) {
	data, err := b.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (b *BinReader) ReadUint8() (uint8, error) {
	data, err := b.read(1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (b *BinReader) ReadUint16() (uint16, error) {
	data, err := b.read(2)
	if err != nil {
		return 0, err
	}
	return b.order.Uint16(data), nil
}

func (b *BinReader) ReadUint32() (uint32, error) {
	data, err := b.read(4)
	if err != nil {
		return 0, err
	}
	return b.order.Uint32(data), nil
}

func (b *BinReader) ReadUint64() (uint64, error) {
	data, err := b.read(8)
	if err != nil {
		return 0, err
	}
	return b.order.Uint64(data), nil
}

func (b *BinReader) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

// Skip discards n bytes.
func (b *BinReader) Skip(n int64) error {
	if n < 0 {
		return fmt.Errorf("cannot skip %d bytes at offset %d", n, b.offset)
	}
	if _, err := io.CopyN(io.Discard, b.reader, n); err != nil {
		return fmt.Errorf("skipping %d bytes at offset %d: %w", n, b.offset, err)
	}
	b.offset += n
	return nil
}
