package bgzf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdidion/htsget-server/internal/htserror"
)

// memResource serves canned raw and decompressed byte streams.
type memResource struct {
	id           string
	raw          []byte
	decompressed []byte
	exists       bool
}

func (r *memResource) ID() string {
	return r.id
}

func (r *memResource) Exists() bool {
	return r.exists
}

func (r *memResource) Size() (int64, error) {
	return int64(len(r.raw)), nil
}

func (r *memResource) Open(decompress bool) (io.ReadCloser, error) {
	if decompress {
		return io.NopCloser(bytes.NewReader(r.decompressed)), nil
	}
	return io.NopCloser(bytes.NewReader(r.raw)), nil
}

func (r *memResource) Create() (io.WriteCloser, error) {
	return nil, errors.New("read-only resource")
}

func baiBytes(refIntervals [][]int64) []byte {
	var buf bytes.Buffer
	buf.WriteString("BAI\x01")
	binary.Write(&buf, binary.LittleEndian, int32(len(refIntervals)))
	for _, intervals := range refIntervals {
		binary.Write(&buf, binary.LittleEndian, int32(0))
		binary.Write(&buf, binary.LittleEndian, int32(len(intervals)))
		for _, offset := range intervals {
			binary.Write(&buf, binary.LittleEndian, uint64(offset)<<16)
		}
	}
	return buf.Bytes()
}

func tbiBytes(refName string, offset int64) []byte {
	var buf bytes.Buffer
	buf.WriteString("TBI\x01")
	binary.Write(&buf, binary.LittleEndian, int32(1))
	for _, v := range []int32{2, 1, 2, 0, int32('#'), 0} {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	binary.Write(&buf, binary.LittleEndian, int32(len(refName)+1))
	buf.WriteString(refName)
	buf.WriteByte(0)
	binary.Write(&buf, binary.LittleEndian, int32(0)) // n_bin
	binary.Write(&buf, binary.LittleEndian, int32(1)) // n_intv
	binary.Write(&buf, binary.LittleEndian, uint64(offset)<<16)
	return buf.Bytes()
}

func TestHeaderBoundaryFromBAI(t *testing.T) {
	data := &memResource{id: "sample.bam", exists: true}
	index := &memResource{
		id:     "sample.bam.bai",
		exists: true,
		raw:    baiBytes([][]int64{{500}, {200, 800}}),
	}

	boundary, path, err := HeaderBoundary(data, index, "BAI")
	require.NoError(t, err)
	assert.Equal(t, int64(200), boundary)
	assert.Equal(t, BoundaryFromIndex, path)
}

func TestHeaderBoundaryFromTabix(t *testing.T) {
	data := &memResource{id: "sample.vcf.gz", exists: true}
	index := &memResource{
		id:     "sample.vcf.gz.tbi",
		exists: true,
		// The resolver opens tabix indexes decompressed.
		decompressed: tbiBytes("chr1", 771),
	}

	boundary, path, err := HeaderBoundary(data, index, "TBI")
	require.NoError(t, err)
	assert.Equal(t, int64(771), boundary)
	assert.Equal(t, BoundaryFromIndex, path)
}

func TestHeaderBoundaryScanBAM(t *testing.T) {
	data := &memResource{
		id:           "sample.bam",
		exists:       true,
		decompressed: bamHeader("", nil),
		raw:          rawBlock(60, 8),
	}

	boundary, path, err := HeaderBoundary(data, nil, "BAI")
	require.NoError(t, err)
	assert.Equal(t, int64(61), boundary)
	assert.Equal(t, BoundaryFromScan, path)
}

func TestHeaderBoundaryScanSkipsAbsentIndex(t *testing.T) {
	data := &memResource{
		id:           "sample.bam",
		exists:       true,
		decompressed: bamHeader("", nil),
		raw:          rawBlock(60, 8),
	}
	index := &memResource{id: "sample.bam.bai", exists: false}

	boundary, path, err := HeaderBoundary(data, index, "BAI")
	require.NoError(t, err)
	assert.Equal(t, int64(61), boundary)
	assert.Equal(t, BoundaryFromScan, path)
}

func TestHeaderBoundaryScanVCF(t *testing.T) {
	header := "##fileformat=VCFv4.2\n#CHROM\tPOS\n"
	data := &memResource{
		id:           "sample.vcf.gz",
		exists:       true,
		decompressed: []byte(header + "chr1\t100\n"),
		raw:          rawBlock(90, uint32(len(header))),
	}

	boundary, path, err := HeaderBoundary(data, nil, "TBI")
	require.NoError(t, err)
	assert.Equal(t, int64(91), boundary)
	assert.Equal(t, BoundaryFromScan, path)
}

func TestHeaderBoundaryScanMalformedBlock(t *testing.T) {
	block := rawBlock(60, 8)
	binary.LittleEndian.PutUint16(block[10:12], 12) // XLEN must be 6
	data := &memResource{
		id:           "sample.bam",
		exists:       true,
		decompressed: bamHeader("", nil),
		raw:          block,
	}

	_, _, err := HeaderBoundary(data, nil, "BAI")
	require.Error(t, err)
	assert.Equal(t, htserror.KindFormatError, htserror.Coerce(err).Kind)
}

func TestHeaderBoundaryEmptyIndexFails(t *testing.T) {
	data := &memResource{id: "sample.bam", exists: true}
	index := &memResource{
		id:     "sample.bam.bai",
		exists: true,
		raw:    baiBytes(nil),
	}

	_, _, err := HeaderBoundary(data, index, "BAI")
	assert.Error(t, err)
}
