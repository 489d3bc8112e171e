package bgzf

import (
	"fmt"
	"strings"

	"github.com/jdidion/htsget-server/internal/htserror"
	log "github.com/jdidion/htsget-server/internal/htslog"
	"github.com/jdidion/htsget-server/internal/htsstore"
	"github.com/jdidion/htsget-server/internal/ngsindex"
)

// Resolution paths reported by HeaderBoundary.
const (
	BoundaryFromIndex = "index"
	BoundaryFromScan  = "scan"
)

// HeaderBoundary computes the smallest offset B such that bytes [0, B)
// of the compressed file, followed by the BGZF EOF marker, form a
// syntactically complete header-only file. The second return names the
// resolution path taken, BoundaryFromIndex or BoundaryFromScan.
//
// When an index is available its linear index is authoritative: the
// smallest recorded interval offset is, by construction, the start of
// the first data record. Without an index the file's own block
// structure is scanned. Both paths agree on well-formed inputs.
func HeaderBoundary(data htsstore.Resource, index htsstore.Resource, indexFormat string) (int64, string, error) {
	if index != nil && index.Exists() {
		boundary, err := boundaryFromIndex(index, indexFormat)
		return boundary, BoundaryFromIndex, err
	}
	boundary, err := boundaryFromScan(data, indexFormat)
	return boundary, BoundaryFromScan, err
}

func boundaryFromIndex(index htsstore.Resource, indexFormat string) (int64, error) {
	var parsed *ngsindex.Index
	switch strings.ToUpper(indexFormat) {
	case "BAI":
		// BAI indexes are stored uncompressed.
		stream, err := index.Open(false)
		if err != nil {
			return 0, err
		}
		defer stream.Close()
		parsed, err = ngsindex.ReadBAI(stream)
		if err != nil {
			return 0, htserror.FormatError(err.Error())
		}
	case "TBI":
		// Tabix indexes are BGZF-compressed on disk.
		stream, err := index.Open(true)
		if err != nil {
			return 0, err
		}
		defer stream.Close()
		parsed, err = ngsindex.ReadTabix(stream)
		if err != nil {
			return 0, htserror.FormatError(err.Error())
		}
	default:
		return 0, fmt.Errorf("unsupported index format: %s", indexFormat)
	}
	boundary, err := parsed.MinOffset()
	if err != nil {
		return 0, htserror.FormatError(err.Error())
	}
	log.Debug("header boundary of %s from index: %d", index.ID(), boundary)
	return boundary, nil
}

func boundaryFromScan(data htsstore.Resource, indexFormat string) (int64, error) {
	decompressed, err := data.Open(true)
	if err != nil {
		return 0, err
	}
	var uncompressedSize int64
	if strings.ToUpper(indexFormat) == "TBI" {
		uncompressedSize, err = VCFHeaderSize(decompressed)
	} else {
		uncompressedSize, err = BAMHeaderSize(decompressed)
	}
	decompressed.Close()
	if err != nil {
		return 0, err
	}

	raw, err := data.Open(false)
	if err != nil {
		return 0, err
	}
	defer raw.Close()
	boundary, err := CompressedHeaderSize(raw, uncompressedSize)
	if err != nil {
		return 0, err
	}
	log.Debug("header boundary of %s from block scan: %d (uncompressed header %d bytes)",
		data.ID(), boundary, uncompressedSize)
	return boundary, nil
}
