package htsserver

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/jdidion/htsget-server/internal/htserror"
	log "github.com/jdidion/htsget-server/internal/htslog"
	"github.com/jdidion/htsget-server/internal/htsstore"
)

// blockHandler delivers raw bytes of a stored object, honoring the
// Range header a ticket URL prescribes.
type blockHandler struct {
	store htsstore.DataStore
}

func newBlockHandler(store htsstore.DataStore) *blockHandler {
	return &blockHandler{store: store}
}

func (h *blockHandler) Handle(subRoute []string, request *http.Request, writer http.ResponseWriter) error {
	if len(subRoute) == 0 {
		return htserror.NotFound("object name required: /block/<name>")
	}
	name := strings.Join(subRoute, "/")
	resource, err := h.store.Lookup(name)
	if err != nil {
		return htserror.NotFound(err.Error())
	}
	if !resource.Exists() {
		return htserror.NotFound("no such object: " + name)
	}
	size, err := resource.Size()
	if err != nil {
		return err
	}

	rangeHeader := request.Header.Get("Range")
	if rangeHeader == "" {
		stream, err := resource.Open(false)
		if err != nil {
			return err
		}
		defer stream.Close()
		writer.Header().Set("Content-Type", "application/octet-stream")
		writer.WriteHeader(http.StatusOK)
		_, err = io.Copy(writer, stream)
		return err
	}

	start, end, err := parseByteRange(rangeHeader, size)
	if err != nil {
		return err
	}
	stream, err := openRange(resource, start, end)
	if err != nil {
		return err
	}
	defer stream.Close()
	writer.Header().Set("Content-Type", "application/octet-stream")
	writer.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	writer.WriteHeader(http.StatusPartialContent)
	if _, err := io.CopyN(writer, stream, end-start+1); err != nil {
		log.Error("streaming %s [%d, %d]: %v", name, start, end, err)
		return nil
	}
	return nil
}

// openRange positions a resource stream at the inclusive range
// [start, end]: a ranged read when the backend supports one, otherwise
// a full open with the prefix discarded.
func openRange(resource htsstore.Resource, start int64, end int64) (io.ReadCloser, error) {
	if ranged, ok := resource.(htsstore.RangeReader); ok {
		return ranged.OpenRange(start, end)
	}
	stream, err := resource.Open(false)
	if err != nil {
		return nil, err
	}
	if _, err := io.CopyN(io.Discard, stream, start); err != nil {
		stream.Close()
		return nil, err
	}
	return stream, nil
}

// parseByteRange parses a single inclusive "bytes=start-end" range, the
// only form ticket URLs emit.
func parseByteRange(header string, size int64) (int64, int64, error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return 0, 0, htserror.InvalidInput("unsupported range unit: " + header)
	}
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok || startStr == "" || endStr == "" {
		return 0, 0, htserror.InvalidInput("malformed byte range: " + header)
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return 0, 0, htserror.InvalidInput("malformed byte range: " + header)
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return 0, 0, htserror.InvalidInput("malformed byte range: " + header)
	}
	if start < 0 || end < start || start >= size {
		return 0, 0, htserror.InvalidInput("byte range out of bounds: " + header)
	}
	if end >= size {
		end = size - 1
	}
	return start, end, nil
}
