// Package awsutils wraps the S3 operations the server needs: object
// existence/length, full and ranged reads, presigned ranged GETs, and
// uploads of freshly built indexes.
package awsutils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Proto is the scheme prefix of object paths handled here.
const S3Proto = "s3://"

// S3ClientApi is the subset of the S3 client used by the server,
// narrow enough to mock in tests.
type S3ClientApi interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Dto names an object (s3://bucket/key), optionally carrying a
// pre-built client for tests.
type S3Dto struct {
	ObjPath string
	Client  S3ClientApi
}

func (dto *S3Dto) getBucketAndKey() (string, string) {
	trimmedPath := strings.TrimPrefix(dto.ObjPath, S3Proto)
	bucketName := strings.Split(trimmedPath, "/")[0]
	objKeyName := strings.TrimPrefix(trimmedPath, bucketName+"/")
	return bucketName, objKeyName
}

// NewS3Client returns the injected client, or one built from the
// default credential chain.
func (dto *S3Dto) NewS3Client(ctx context.Context) (S3ClientApi, error) {
	if dto.Client != nil {
		return dto.Client, nil
	}
	defaultCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}
	return s3.NewFromConfig(defaultCfg), nil
}

// HeadS3Object returns the content length of the object.
func HeadS3Object(ctx context.Context, dto S3Dto) (int64, error) {
	client, err := dto.NewS3Client(ctx)
	if err != nil {
		return 0, err
	}
	bucketName, objKeyName := dto.getBucketAndKey()
	headResp, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objKeyName),
	})
	if err != nil {
		return 0, err
	}
	return aws.ToInt64(headResp.ContentLength), nil
}

// GetS3Object returns a reader over the whole object.
func GetS3Object(ctx context.Context, dto S3Dto) (io.ReadCloser, error) {
	client, err := dto.NewS3Client(ctx)
	if err != nil {
		return nil, err
	}
	bucketName, objKeyName := dto.getBucketAndKey()
	getResp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objKeyName),
	})
	if err != nil {
		return nil, err
	}
	return getResp.Body, nil
}

// GetS3ObjectRange returns a reader over the inclusive byte range
// [start, end] of the object.
func GetS3ObjectRange(ctx context.Context, dto S3Dto, start int64, end int64) (io.ReadCloser, error) {
	client, err := dto.NewS3Client(ctx)
	if err != nil {
		return nil, err
	}
	bucketName, objKeyName := dto.getBucketAndKey()
	getResp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objKeyName),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
	})
	if err != nil {
		return nil, err
	}
	return getResp.Body, nil
}

// PutS3Object uploads body as the object's new content.
func PutS3Object(ctx context.Context, dto S3Dto, body io.Reader) error {
	client, err := dto.NewS3Client(ctx)
	if err != nil {
		return err
	}
	bucketName, objKeyName := dto.getBucketAndKey()
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objKeyName),
		Body:   body,
	})
	return err
}

// PresignGetObjectRange returns a presigned URL fetching the inclusive
// byte range [start, end] of the object. Presigning requires the full
// client; an injected mock cannot serve it.
func PresignGetObjectRange(ctx context.Context, dto S3Dto, start int64, end int64) (string, error) {
	client, err := dto.NewS3Client(ctx)
	if err != nil {
		return "", err
	}
	fullClient, ok := client.(*s3.Client)
	if !ok {
		return "", errors.New("presign is unavailable with an injected client")
	}
	presignClient := s3.NewPresignClient(fullClient)
	bucketName, objKeyName := dto.getBucketAndKey()
	req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objKeyName),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
	})
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
