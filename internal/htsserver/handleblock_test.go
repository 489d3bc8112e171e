package htsserver

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdidion/htsget-server/internal/htserror"
	"github.com/jdidion/htsget-server/internal/htsstore"
)

func blockStore(t *testing.T) *memStore {
	t.Helper()
	store := newMemStore()
	store.put("sample1.bam", []byte("0123456789"))
	return store
}

func serveBlock(t *testing.T, store *memStore, subRoute []string, rangeHeader string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	handler := newBlockHandler(store)
	request := httptest.NewRequest("GET", "/block/"+joinPath(subRoute), nil)
	if rangeHeader != "" {
		request.Header.Set("Range", rangeHeader)
	}
	recorder := httptest.NewRecorder()
	err := handler.Handle(subRoute, request, recorder)
	return recorder, err
}

func joinPath(segments []string) string {
	path := ""
	for i, segment := range segments {
		if i > 0 {
			path += "/"
		}
		path += segment
	}
	return path
}

func TestBlockFullObject(t *testing.T) {
	recorder, err := serveBlock(t, blockStore(t), []string{"sample1.bam"}, "")
	require.NoError(t, err)
	assert.Equal(t, 200, recorder.Code)
	assert.Equal(t, "0123456789", recorder.Body.String())
	assert.Equal(t, "application/octet-stream", recorder.Header().Get("Content-Type"))
}

func TestBlockRangedRead(t *testing.T) {
	recorder, err := serveBlock(t, blockStore(t), []string{"sample1.bam"}, "bytes=2-5")
	require.NoError(t, err)
	assert.Equal(t, 206, recorder.Code)
	assert.Equal(t, "2345", recorder.Body.String())
	assert.Equal(t, "bytes 2-5/10", recorder.Header().Get("Content-Range"))
}

func TestBlockRangeClampedToSize(t *testing.T) {
	recorder, err := serveBlock(t, blockStore(t), []string{"sample1.bam"}, "bytes=8-99")
	require.NoError(t, err)
	assert.Equal(t, 206, recorder.Code)
	assert.Equal(t, "89", recorder.Body.String())
	assert.Equal(t, "bytes 8-9/10", recorder.Header().Get("Content-Range"))
}

func TestBlockMissingObject(t *testing.T) {
	_, err := serveBlock(t, blockStore(t), []string{"nosuch.bam"}, "")
	require.Error(t, err)
	assert.Equal(t, htserror.KindNotFound, htserror.Coerce(err).Kind)
}

func TestBlockEmptyName(t *testing.T) {
	_, err := serveBlock(t, blockStore(t), nil, "")
	require.Error(t, err)
	assert.Equal(t, htserror.KindNotFound, htserror.Coerce(err).Kind)
}

func TestBlockBadRanges(t *testing.T) {
	for _, header := range []string{
		"items=0-5",
		"bytes=5",
		"bytes=-5",
		"bytes=5-",
		"bytes=a-b",
		"bytes=6-2",
		"bytes=10-12",
	} {
		_, err := serveBlock(t, blockStore(t), []string{"sample1.bam"}, header)
		require.Error(t, err, header)
		assert.Equal(t, htserror.KindInvalidInput, htserror.Coerce(err).Kind, header)
	}
}

// rangedStore wraps memStore with resources that serve byte ranges
// natively, the way the S3 backend does.
type rangedStore struct {
	*memStore
	rangeCalls int
}

func (s *rangedStore) Lookup(name string) (htsstore.Resource, error) {
	resource, err := s.memStore.Lookup(name)
	if err != nil {
		return nil, err
	}
	return &rangedResource{Resource: resource, store: s}, nil
}

type rangedResource struct {
	htsstore.Resource
	store *rangedStore
}

func (r *rangedResource) OpenRange(start int64, end int64) (io.ReadCloser, error) {
	r.store.rangeCalls++
	stream, err := r.Open(false)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data[start : end+1])), nil
}

func TestBlockUsesRangedBackend(t *testing.T) {
	store := &rangedStore{memStore: blockStore(t)}
	handler := newBlockHandler(store)

	request := httptest.NewRequest("GET", "/block/sample1.bam", nil)
	request.Header.Set("Range", "bytes=2-5")
	recorder := httptest.NewRecorder()
	require.NoError(t, handler.Handle([]string{"sample1.bam"}, request, recorder))

	assert.Equal(t, 206, recorder.Code)
	assert.Equal(t, "2345", recorder.Body.String())
	assert.Equal(t, "bytes 2-5/10", recorder.Header().Get("Content-Range"))
	assert.Equal(t, 1, store.rangeCalls)

	// Full-object reads stay on the plain open path.
	full := httptest.NewRecorder()
	require.NoError(t, handler.Handle([]string{"sample1.bam"}, httptest.NewRequest("GET", "/block/sample1.bam", nil), full))
	assert.Equal(t, 200, full.Code)
	assert.Equal(t, 1, store.rangeCalls)
}
