package htsserver

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/jdidion/htsget-server/internal/bgzf"
	"github.com/jdidion/htsget-server/internal/htsmetrics"
	"github.com/jdidion/htsget-server/internal/htsstore"
	"github.com/jdidion/htsget-server/internal/ngsindex"
)

func newVariantsHandler(store htsstore.DataStore, blockSize int64, metrics *htsmetrics.Metrics) *apiHandler {
	handler := &apiHandler{
		route:         "variants",
		defaultFormat: "VCF",
		indexFormat:   "TBI",
		store:         store,
		blockSize:     blockSize,
		metrics:       metrics,
		cache:         make(map[string]string),
	}
	handler.createIndex = func(data, index htsstore.Resource) error {
		return createVariantsIndex(data, index, metrics)
	}
	return handler
}

// createVariantsIndex writes a minimal tabix index for the VCF
// resource, recording the header boundary found by scanning the BGZF
// block structure against the byte length of the #-prefixed header
// lines.
func createVariantsIndex(data htsstore.Resource, index htsstore.Resource, metrics *htsmetrics.Metrics) error {
	boundary, path, err := bgzf.HeaderBoundary(data, nil, "TBI")
	if err != nil {
		return err
	}
	metrics.BoundaryResolutions.WithLabelValues(path).Inc()

	refName, err := firstContigName(data)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := ngsindex.WriteBoundaryTabix(&buf, boundary, refName); err != nil {
		return err
	}
	return writeResource(index, buf.Bytes())
}

// firstContigName returns the reference name of the first data record,
// or "*" for a record-less file.
func firstContigName(data htsstore.Resource) (string, error) {
	decompressed, err := data.Open(true)
	if err != nil {
		return "", err
	}
	defer decompressed.Close()

	scanner := bufio.NewScanner(decompressed)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		if name, _, found := strings.Cut(line, "\t"); found && name != "" {
			return name, nil
		}
		break
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "*", nil
}
