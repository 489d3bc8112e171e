package htsserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/biogo/hts/bam"

	"github.com/jdidion/htsget-server/internal/bgzf"
	log "github.com/jdidion/htsget-server/internal/htslog"
	"github.com/jdidion/htsget-server/internal/htsmetrics"
	"github.com/jdidion/htsget-server/internal/htsstore"
	"github.com/jdidion/htsget-server/internal/ngsindex"
)

func newReadsHandler(store htsstore.DataStore, blockSize int64, metrics *htsmetrics.Metrics) *apiHandler {
	handler := &apiHandler{
		route:         "reads",
		defaultFormat: "BAM",
		indexFormat:   "BAI",
		store:         store,
		blockSize:     blockSize,
		metrics:       metrics,
		cache:         make(map[string]string),
	}
	handler.createIndex = func(data, index htsstore.Resource) error {
		return createReadsIndex(data, index, metrics)
	}
	return handler
}

// createReadsIndex builds a BAI for the BAM resource. The records are
// streamed through once to build a full index; a BAM whose records
// cannot be indexed (or that has none) still gets a minimal index
// recording the header boundary found by scanning the block structure.
func createReadsIndex(data htsstore.Resource, index htsstore.Resource, metrics *htsmetrics.Metrics) error {
	var buf bytes.Buffer
	records, err := buildBAI(data, &buf)
	if err == nil && records > 0 {
		// A BAI built from a file whose first record shares the header's
		// block records no nonzero linear offsets and cannot answer the
		// boundary query.
		err = checkBoundaryUsable(buf.Bytes())
	}
	if err != nil || records == 0 {
		if err != nil {
			log.Warn("full BAI build for %s failed (%v), writing boundary index", data.ID(), err)
		}
		boundary, path, scanErr := bgzf.HeaderBoundary(data, nil, "BAI")
		if scanErr != nil {
			return scanErr
		}
		metrics.BoundaryResolutions.WithLabelValues(path).Inc()
		buf.Reset()
		if err := ngsindex.WriteBoundaryBAI(&buf, boundary); err != nil {
			return err
		}
	}
	return writeResource(index, buf.Bytes())
}

func checkBoundaryUsable(bai []byte) error {
	parsed, err := ngsindex.ReadBAI(bytes.NewReader(bai))
	if err != nil {
		return err
	}
	_, err = parsed.MinOffset()
	return err
}

// buildBAI streams the BAM's records into a BAI, returning the number
// of records indexed.
func buildBAI(data htsstore.Resource, out io.Writer) (int, error) {
	raw, err := data.Open(false)
	if err != nil {
		return 0, err
	}
	defer raw.Close()

	reader, err := bam.NewReader(raw, 1)
	if err != nil {
		return 0, fmt.Errorf("reading BAM %s: %w", data.ID(), err)
	}
	defer reader.Close()

	var index bam.Index
	records := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return records, fmt.Errorf("reading record %d of %s: %w", records, data.ID(), err)
		}
		if err := index.Add(record, reader.LastChunk()); err != nil {
			return records, fmt.Errorf("indexing record %d of %s: %w", records, data.ID(), err)
		}
		records++
	}
	if records == 0 {
		return 0, nil
	}
	return records, bam.WriteIndex(out, &index)
}

func writeResource(resource htsstore.Resource, content []byte) error {
	writer, err := resource.Create()
	if err != nil {
		return err
	}
	if _, err := writer.Write(content); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}
