package htsstore

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/biogo/hts/bgzf"
	"github.com/google/uuid"

	log "github.com/jdidion/htsget-server/internal/htslog"
)

// LocalDataStore serves resources from a directory tree. Ticket URLs
// point back at this server's block-delivery endpoint.
type LocalDataStore struct {
	root    string
	baseURL string
}

// NewLocalDataStore roots a store at directory. baseURL is the
// externally visible server base used in ticket URLs.
func NewLocalDataStore(directory string, baseURL string) *LocalDataStore {
	return &LocalDataStore{
		root:    directory,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *LocalDataStore) Resolve(recordID []string, dataFormat string, indexFormat string) (Resource, Resource, error) {
	dataName, indexName, err := resourceNames(recordID, dataFormat, indexFormat)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.Lookup(dataName)
	if err != nil {
		return nil, nil, err
	}
	index, err := s.Lookup(indexName)
	if err != nil {
		return nil, nil, err
	}
	return data, index, nil
}

func (s *LocalDataStore) Lookup(name string) (Resource, error) {
	cleaned := filepath.Clean("/" + name)[1:]
	if cleaned == "" || cleaned == "." {
		return nil, fmt.Errorf("empty resource name")
	}
	return &LocalResource{
		relPath: filepath.ToSlash(cleaned),
		absPath: filepath.Join(s.root, cleaned),
	}, nil
}

func (s *LocalDataStore) AddResource(resource Resource) error {
	if !resource.Exists() {
		return fmt.Errorf("resource was not materialized: %s", resource.ID())
	}
	log.Debug("registered resource %s", resource.ID())
	return nil
}

func (s *LocalDataStore) TicketURL(resource Resource, start int64, end int64) (string, error) {
	local, ok := resource.(*LocalResource)
	if !ok {
		return "", fmt.Errorf("foreign resource: %s", resource.ID())
	}
	escaped := (&url.URL{Path: "/block/" + local.relPath}).EscapedPath()
	return s.baseURL + escaped, nil
}

// LocalResource is a file under the store root.
type LocalResource struct {
	relPath string
	absPath string
}

func (r *LocalResource) ID() string {
	return r.relPath
}

func (r *LocalResource) Exists() bool {
	info, err := os.Stat(r.absPath)
	return err == nil && info.Mode().IsRegular()
}

func (r *LocalResource) Size() (int64, error) {
	info, err := os.Stat(r.absPath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (r *LocalResource) Open(decompress bool) (io.ReadCloser, error) {
	file, err := os.Open(r.absPath)
	if err != nil {
		return nil, err
	}
	if !decompress {
		return file, nil
	}
	zr, err := bgzf.NewReader(file, 1)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("opening %s as BGZF: %w", r.relPath, err)
	}
	return &decompressedReader{zr: zr, file: file}, nil
}

// Create writes to a uuid-named temp file in the target directory and
// renames it into place on Close, so a half-written index is never
// visible under the resource's name.
func (r *LocalResource) Create() (io.WriteCloser, error) {
	dir := filepath.Dir(r.absPath)
	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	file, err := os.Create(tmp)
	if err != nil {
		return nil, err
	}
	return &atomicWriter{file: file, tmpPath: tmp, finalPath: r.absPath}, nil
}

type decompressedReader struct {
	zr   *bgzf.Reader
	file *os.File
}

func (d *decompressedReader) Read(p []byte) (int, error) {
	return d.zr.Read(p)
}

func (d *decompressedReader) Close() error {
	zErr := d.zr.Close()
	fErr := d.file.Close()
	if zErr != nil {
		return zErr
	}
	return fErr
}

type atomicWriter struct {
	file      *os.File
	tmpPath   string
	finalPath string
}

func (w *atomicWriter) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

func (w *atomicWriter) Close() error {
	if err := w.file.Close(); err != nil {
		os.Remove(w.tmpPath)
		return err
	}
	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		os.Remove(w.tmpPath)
		return err
	}
	return nil
}
