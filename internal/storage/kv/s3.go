// s3.go — хранилище в бакете S3-совместимого сервиса (MinIO, AWS S3).
// Ключ — имя объекта с префиксом.
package kv

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Options — параметры подключения к S3.
type S3Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
	Prefix    string // префикс имён объектов, например "weldregistry/"
}

// S3Store — хранилище в бакете S3.
type S3Store struct {
	cl     *minio.Client
	bucket string
	prefix string
}

// NewS3 создаёт клиента S3 и проверяет существование бакета.
func NewS3(ctx context.Context, opts S3Options) (*S3Store, error) {
	mo := &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	}
	if opts.PathStyle {
		mo.BucketLookup = minio.BucketLookupPath
	}
	cl, err := minio.New(opts.Endpoint, mo)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента S3: %w", err)
	}

	exists, err := cl.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки бакета %s: %w", opts.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("бакет %s не существует", opts.Bucket)
	}
	return &S3Store{cl: cl, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.cl.PutObject(ctx, s.bucket, s.prefix+key, bytes.NewReader(value), int64(len(value)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("ошибка записи %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.cl.GetObject(ctx, s.bucket, s.prefix+key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapErr(key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapErr(key, err)
	}
	return data, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := s.cl.RemoveObject(ctx, s.bucket, s.prefix+key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("ошибка удаления %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	for obj := range s.cl.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix + prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("ошибка получения списка объектов: %w", obj.Err)
		}
		keys = append(keys, strings.TrimPrefix(obj.Key, s.prefix))
	}
	return sortedKeys(keys), nil
}

func (s *S3Store) Close() error { return nil }

// mapErr преобразует NoSuchKey в ErrNotFound.
func (s *S3Store) mapErr(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return fmt.Errorf("ошибка чтения %s: %w", key, err)
}
