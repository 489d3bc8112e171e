// Package htsstore resolves htsget record IDs to the byte-addressable
// resources backing them: the genomic data file and its secondary
// index. Two implementations exist, one over a local directory tree and
// one over an S3 bucket.
package htsstore

import (
	"fmt"
	"io"
	"strings"
)

// Resource is an opaque handle to a byte-addressable stream.
type Resource interface {
	// ID is the stable identity of the resource. Resolving the same
	// record with the same formats always yields the same ID, which is
	// what makes it usable as a ticket-cache key.
	ID() string

	Exists() bool

	Size() (int64, error)

	// Open returns the resource's bytes. With decompress set, the
	// stream is inflated through a BGZF reader.
	Open(decompress bool) (io.ReadCloser, error)

	// Create returns a writer for the resource's content. The resource
	// becomes visible atomically when the writer is closed.
	Create() (io.WriteCloser, error)
}

// RangeReader is implemented by resources whose backend can serve an
// inclusive byte range directly, without streaming and discarding the
// prefix.
type RangeReader interface {
	OpenRange(start int64, end int64) (io.ReadCloser, error)
}

// DataStore owns resources. Resolve is a pure function of its inputs.
type DataStore interface {
	// Resolve maps a (possibly multi-segment) record ID and a pair of
	// formats to the record's data and index resources. Neither is
	// guaranteed to exist.
	Resolve(recordID []string, dataFormat string, indexFormat string) (Resource, Resource, error)

	// Lookup returns the resource stored under a relative name, as used
	// by the block-delivery endpoint.
	Lookup(name string) (Resource, error)

	// AddResource registers a newly materialized resource (typically a
	// freshly built index) with the store.
	AddResource(resource Resource) error

	// TicketURL returns a URL from which a client can fetch the given
	// inclusive byte range of the resource.
	TicketURL(resource Resource, start int64, end int64) (string, error)
}

// Filename extensions per htsget format.
var dataExtensions = map[string]string{
	"BAM": ".bam",
	"VCF": ".vcf.gz",
}

var indexExtensions = map[string]string{
	"BAI": ".bai",
	"TBI": ".tbi",
}

// resourceNames derives the relative data and index names for a record.
// The index name is the data name plus the index extension, the htslib
// side-by-side convention.
func resourceNames(recordID []string, dataFormat string, indexFormat string) (string, string, error) {
	dataExt, ok := dataExtensions[strings.ToUpper(dataFormat)]
	if !ok {
		return "", "", fmt.Errorf("unsupported format: %s", dataFormat)
	}
	indexExt, ok := indexExtensions[strings.ToUpper(indexFormat)]
	if !ok {
		return "", "", fmt.Errorf("unsupported index format: %s", indexFormat)
	}
	dataName := strings.Join(recordID, "/") + dataExt
	return dataName, dataName + indexExt, nil
}
