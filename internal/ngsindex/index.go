// Package ngsindex reads the parts of BAI and tabix (TBI) secondary
// indexes needed to locate the header/record boundary of a
// BGZF-compressed file, and writes minimal single-interval indexes for
// files that arrive without one.
//
// Layouts follow the SAM and tabix specifications
// (http://samtools.github.io/hts-specs/): a sequence of reference
// entries, each holding binned chunks followed by a linear index of
// virtual file offsets.
package ngsindex

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/biogo/hts/bgzf"
)

var (
	baiMagic = [4]byte{'B', 'A', 'I', 0x01}
	tbiMagic = [4]byte{'T', 'B', 'I', 0x01}
)

// Interval is one linear-index entry: the compressed-file offset of the
// first record overlapping the interval's genomic window.
type Interval struct {
	FileOffset int64
}

// RefIndex is the index of a single reference sequence.
type RefIndex struct {
	Intervals []Interval
}

// Index is the portion of a BAI/TBI index relevant to boundary
// computation.
type Index struct {
	Refs []RefIndex
}

// MinOffset returns the smallest compressed file offset recorded in any
// linear-index interval of any reference. Zero offsets mark unset
// intervals and are ignored; the first data record can never sit at
// offset zero because the header precedes it.
func (idx *Index) MinOffset() (int64, error) {
	found := false
	var min int64
	for _, ref := range idx.Refs {
		for _, interval := range ref.Intervals {
			if interval.FileOffset == 0 {
				continue
			}
			if !found || interval.FileOffset < min {
				min = interval.FileOffset
				found = true
			}
		}
	}
	if !found {
		return 0, fmt.Errorf("index contains no linear-index intervals")
	}
	return min, nil
}

// ReadBAI parses an uncompressed BAI index stream.
func ReadBAI(reader io.Reader) (*Index, error) {
	br := NewBinReader(reader, binary.LittleEndian)
	magic, err := br.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if [4]byte(magic) != baiMagic {
		return nil, fmt.Errorf("not a BAI index: bad magic %q", magic)
	}
	nRef, err := br.ReadInt32()
	if err != nil {
		return nil, err
	}
	return readRefIndexes(br, int(nRef))
}

// ReadTabix parses a tabix index stream. Tabix indexes are stored
// BGZF-compressed; the caller passes an already decompressed stream.
func ReadTabix(reader io.Reader) (*Index, error) {
	br := NewBinReader(reader, binary.LittleEndian)
	magic, err := br.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if [4]byte(magic) != tbiMagic {
		return nil, fmt.Errorf("not a tabix index: bad magic %q", magic)
	}
	nRef, err := br.ReadInt32()
	if err != nil {
		return nil, err
	}
	// format, col_seq, col_beg, col_end, meta, skip
	if err := br.Skip(24); err != nil {
		return nil, err
	}
	lNames, err := br.ReadInt32()
	if err != nil {
		return nil, err
	}
	if err := br.Skip(int64(lNames)); err != nil {
		return nil, err
	}
	return readRefIndexes(br, int(nRef))
}

func readRefIndexes(br *BinReader, nRef int) (*Index, error) {
	if nRef < 0 {
		return nil, fmt.Errorf("negative reference count: %d", nRef)
	}
	index := &Index{Refs: make([]RefIndex, 0, nRef)}
	for i := 0; i < nRef; i++ {
		nBin, err := br.ReadInt32()
		if err != nil {
			return nil, err
		}
		for j := int32(0); j < nBin; j++ {
			// bin number
			if _, err := br.ReadUint32(); err != nil {
				return nil, err
			}
			nChunk, err := br.ReadInt32()
			if err != nil {
				return nil, err
			}
			if err := br.Skip(int64(nChunk) * 16); err != nil {
				return nil, err
			}
		}
		nIntv, err := br.ReadInt32()
		if err != nil {
			return nil, err
		}
		ref := RefIndex{Intervals: make([]Interval, 0, nIntv)}
		for j := int32(0); j < nIntv; j++ {
			voffset, err := br.ReadUint64()
			if err != nil {
				return nil, err
			}
			// The high 48 bits of a virtual offset address the
			// compressed block; the low 16 the position within it.
			ref.Intervals = append(ref.Intervals, Interval{FileOffset: int64(voffset >> 16)})
		}
		index.Refs = append(index.Refs, ref)
	}
	return index, nil
}

// WriteBoundaryBAI writes a minimal BAI index recording boundary as the
// offset of the first data record: one reference, no bins, a single
// linear-index interval.
func WriteBoundaryBAI(writer io.Writer, boundary int64) error {
	return writeBoundaryBody(writer, baiMagic, boundary, nil)
}

// WriteBoundaryTabix writes a minimal BGZF-compressed tabix index
// recording boundary as the offset of the first data record.
func WriteBoundaryTabix(writer io.Writer, boundary int64, refName string) error {
	zw := bgzf.NewWriter(writer, 1)
	header := make([]byte, 0, 32+len(refName))
	// format=2 (VCF), col_seq=1, col_beg=2, col_end=0, meta='#', skip=0
	for _, v := range []int32{2, 1, 2, 0, int32('#'), 0} {
		header = binary.LittleEndian.AppendUint32(header, uint32(v))
	}
	names := append([]byte(refName), 0)
	header = binary.LittleEndian.AppendUint32(header, uint32(len(names)))
	header = append(header, names...)
	if err := writeBoundaryBody(zw, tbiMagic, boundary, header); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func writeBoundaryBody(writer io.Writer, magic [4]byte, boundary int64, extra []byte) error {
	body := append([]byte{}, magic[:]...)
	body = binary.LittleEndian.AppendUint32(body, 1) // n_ref
	body = append(body, extra...)
	body = binary.LittleEndian.AppendUint32(body, 0) // n_bin
	body = binary.LittleEndian.AppendUint32(body, 1) // n_intv
	body = binary.LittleEndian.AppendUint64(body, uint64(boundary)<<16)
	_, err := writer.Write(body)
	return err
}
