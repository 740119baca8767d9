// Package objstore ships taildb backups to S3-compatible object storage.
//
// Push uploads a compressed backup with its checksum stored as object
// metadata; Pull downloads one, verifies the checksum and restores it into
// a new database file.
package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jpl-au/taildb"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Metadata keys stored alongside each backup.
const (
	MetaChecksum  = "Taildb-Checksum"
	MetaAlgorithm = "Taildb-Algorithm"
)

// Config describes the bucket backups are stored in.
type Config struct {
	Endpoint string
	Access   string
	Secret   string
	Bucket   string
	Region   string
	Insecure bool // plain HTTP, for local minio
}

// Objects is the storage the Client needs. It is satisfied by the minio
// adapter returned from New and by in-memory fakes in tests.
type Objects interface {
	Put(ctx context.Context, name string, r io.Reader, size int64, meta map[string]string) error
	Get(ctx context.Context, name string) (io.ReadCloser, map[string]string, error)
}

// Client pushes and pulls database backups.
type Client struct {
	objects Objects
}

// New connects to the bucket described by config.
func New(ctx context.Context, config Config) (*Client, error) {
	if config.Endpoint == "" || config.Bucket == "" {
		return nil, errors.New("objstore: endpoint and bucket are required")
	}
	mc, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.Access, config.Secret, ""),
		Region: config.Region,
		Secure: !config.Insecure,
	})
	if err != nil {
		return nil, err
	}
	found, err := mc.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("objstore: bucket %q does not exist", config.Bucket)
	}
	return NewWithObjects(&bucket{client: mc, name: config.Bucket}), nil
}

// NewWithObjects wraps an existing Objects implementation.
func NewWithObjects(objects Objects) *Client {
	return &Client{objects: objects}
}

// Push uploads a backup of db under name and returns its checksum.
func (c *Client) Push(ctx context.Context, db *taildb.DB, name string) (string, error) {
	var buf bytes.Buffer
	sum, err := db.Backup(&buf)
	if err != nil {
		return "", err
	}
	meta := map[string]string{
		MetaChecksum:  sum,
		MetaAlgorithm: strconv.Itoa(db.ChecksumAlgorithm()),
	}
	if err := c.objects.Put(ctx, name, &buf, int64(buf.Len()), meta); err != nil {
		return "", fmt.Errorf("objstore: put %s: %w", name, err)
	}
	return sum, nil
}

// Pull downloads the backup stored under name and restores it to path.
// The checksum algorithm recorded with the backup overrides
// config.Checksum.
func (c *Client) Pull(ctx context.Context, name, path string, config taildb.Config) (*taildb.DB, error) {
	body, meta, err := c.objects.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("objstore: get %s: %w", name, err)
	}
	defer body.Close()

	if alg, err := strconv.Atoi(lookup(meta, MetaAlgorithm)); err == nil {
		config.Checksum = alg
	}
	return taildb.Restore(body, path, lookup(meta, MetaChecksum), config)
}

// lookup finds a metadata value case-insensitively; S3 servers are free to
// change the case of user metadata keys.
func lookup(meta map[string]string, key string) string {
	for k, v := range meta {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// bucket adapts a minio client to Objects.
type bucket struct {
	client *minio.Client
	name   string
}

func (b *bucket) Put(ctx context.Context, name string, r io.Reader, size int64, meta map[string]string) error {
	_, err := b.client.PutObject(ctx, b.name, name, r, size, minio.PutObjectOptions{
		ContentType:  "application/zstd",
		UserMetadata: meta,
	})
	return err
}

func (b *bucket) Get(ctx context.Context, name string) (io.ReadCloser, map[string]string, error) {
	info, err := b.client.StatObject(ctx, b.name, name, minio.StatObjectOptions{})
	if err != nil {
		return nil, nil, err
	}
	obj, err := b.client.GetObject(ctx, b.name, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, err
	}
	return obj, info.UserMetadata, nil
}
