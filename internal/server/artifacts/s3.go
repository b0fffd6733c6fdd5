package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

// S3API — часть клиента s3, которая используется хранилищем.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options — параметры S3-совместимого бакета (AWS, R2, MinIO).
type S3Options struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// PublicURL — публичный адрес бакета. Пустой — артефакт отдаёт API по urlPrefix.
	PublicURL string
}

// S3 — артефакты в бакете, ключ объекта совпадает с ключом артефакта.
type S3 struct {
	api       S3API
	bucket    string
	publicURL string
	urlPrefix string
	now       func() time.Time
}

// NewS3Client создаёт клиента s3 со статическими ключами и path-style адресацией.
func NewS3Client(ctx context.Context, o S3Options) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(o.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			o.AccessKeyID, o.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("artifacts: aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
		}
		so.UsePathStyle = true
	}), nil
}

func NewS3(api S3API, bucket, publicURL, urlPrefix string) *S3 {
	return &S3{
		api:       api,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		urlPrefix: urlPrefix,
		now:       time.Now,
	}
}

func (s *S3) url(key, name string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	return s.urlPrefix + "/" + name
}

func (s *S3) Put(ctx context.Context, owner, name, contentType string, data []byte) (Artifact, error) {
	key, err := Key(owner, name)
	if err != nil {
		return Artifact{}, err
	}
	if contentType == "" {
		contentType = ContentTypeFor(name)
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: s3 put: %v", serr.ErrStorage, err)
	}

	return Artifact{
		Name:        name,
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		URL:         s.url(key, name),
		CreatedAt:   s.now().UTC(),
	}, nil
}

func (s *S3) Open(ctx context.Context, key string) (io.ReadCloser, Artifact, error) {
	_, name, err := splitKey(key)
	if err != nil {
		return nil, Artifact{}, err
	}

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, Artifact{}, serr.ErrNotFound
		}
		return nil, Artifact{}, fmt.Errorf("%w: s3 get: %v", serr.ErrStorage, err)
	}

	a := Artifact{
		Name:        name,
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
		URL:         s.url(key, name),
	}
	if a.ContentType == "" {
		a.ContentType = ContentTypeFor(name)
	}
	if out.LastModified != nil {
		a.CreatedAt = out.LastModified.UTC()
	}
	return out.Body, a, nil
}
