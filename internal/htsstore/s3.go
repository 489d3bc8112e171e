package htsstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/biogo/hts/bgzf"

	"github.com/jdidion/htsget-server/internal/awsutils"
	log "github.com/jdidion/htsget-server/internal/htslog"
)

// S3DataStore serves resources from an S3 bucket. Ticket URLs are
// presigned ranged GETs against the objects themselves, so clients
// fetch data bytes without passing through this server.
type S3DataStore struct {
	bucket string
	client awsutils.S3ClientApi
}

// NewS3DataStore serves objects from bucket. client may be nil, in
// which case one is built from the default credential chain per call.
func NewS3DataStore(bucket string, client awsutils.S3ClientApi) *S3DataStore {
	return &S3DataStore{bucket: bucket, client: client}
}

func (s *S3DataStore) dto(key string) awsutils.S3Dto {
	return awsutils.S3Dto{
		ObjPath: awsutils.S3Proto + path.Join(s.bucket, key),
		Client:  s.client,
	}
}

func (s *S3DataStore) Resolve(recordID []string, dataFormat string, indexFormat string) (Resource, Resource, error) {
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

func (s *S3DataStore) Lookup(name string) (Resource, error) {
	cleaned := path.Clean("/" + name)[1:]
	if cleaned == "" || cleaned == "." {
		return nil, fmt.Errorf("empty resource name")
	}
	return &S3Resource{store: s, key: cleaned}, nil
}

func (s *S3DataStore) AddResource(resource Resource) error {
	if !resource.Exists() {
		return fmt.Errorf("resource was not materialized: %s", resource.ID())
	}
	log.Debug("registered resource %s", resource.ID())
	return nil
}

func (s *S3DataStore) TicketURL(resource Resource, start int64, end int64) (string, error) {
	remote, ok := resource.(*S3Resource)
	if !ok {
		return "", fmt.Errorf("foreign resource: %s", resource.ID())
	}
	return awsutils.PresignGetObjectRange(context.Background(), s.dto(remote.key), start, end)
}

// S3Resource is a single object in the store's bucket.
type S3Resource struct {
	store *S3DataStore
	key   string
}

func (r *S3Resource) ID() string {
	return awsutils.S3Proto + path.Join(r.store.bucket, r.key)
}

func (r *S3Resource) Exists() bool {
	_, err := awsutils.HeadS3Object(context.Background(), r.store.dto(r.key))
	return err == nil
}

func (r *S3Resource) Size() (int64, error) {
	return awsutils.HeadS3Object(context.Background(), r.store.dto(r.key))
}

func (r *S3Resource) Open(decompress bool) (io.ReadCloser, error) {
	body, err := awsutils.GetS3Object(context.Background(), r.store.dto(r.key))
	if err != nil {
		return nil, err
	}
	if !decompress {
		return body, nil
	}
	zr, err := bgzf.NewReader(body, 1)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("opening %s as BGZF: %w", r.key, err)
	}
	return &s3DecompressedReader{zr: zr, body: body}, nil
}

// OpenRange fetches the inclusive byte range [start, end] with a ranged
// GetObject, so block delivery never transfers the skipped prefix.
func (r *S3Resource) OpenRange(start int64, end int64) (io.ReadCloser, error) {
	return awsutils.GetS3ObjectRange(context.Background(), r.store.dto(r.key), start, end)
}

// Create buffers the content locally and uploads it in one PutObject
// when closed, so a half-written index never becomes visible.
func (r *S3Resource) Create() (io.WriteCloser, error) {
	return &s3Uploader{resource: r}, nil
}

type s3DecompressedReader struct {
	zr   *bgzf.Reader
	body io.ReadCloser
}

func (d *s3DecompressedReader) Read(p []byte) (int, error) {
	return d.zr.Read(p)
}

func (d *s3DecompressedReader) Close() error {
	zErr := d.zr.Close()
	bErr := d.body.Close()
	if zErr != nil {
		return zErr
	}
	return bErr
}

type s3Uploader struct {
	resource *S3Resource
	buf      bytes.Buffer
}

func (u *s3Uploader) Write(p []byte) (int, error) {
	return u.buf.Write(p)
}

func (u *s3Uploader) Close() error {
	return awsutils.PutS3Object(context.Background(), u.resource.store.dto(u.resource.key), &u.buf)
}
