// Package export writes JSON snapshots of all notes to S3-compatible
// object storage.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/vango-dev/notes/internal/notes"
)

// ErrNoBucket is returned when the exporter has no bucket configured.
var ErrNoBucket = errors.New("export: no bucket configured")

// Putter is the subset of *s3.Client the exporter uses.
type Putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Lister provides the notes to export.
type Lister interface {
	List(ctx context.Context) ([]notes.Note, error)
}

// Snapshot is the exported document.
type Snapshot struct {
	ExportedAt time.Time    `json:"exported_at"`
	Count      int          `json:"count"`
	Notes      []notes.Note `json:"notes"`
}

// Result describes a written snapshot.
type Result struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Count  int    `json:"count"`
	Bytes  int    `json:"bytes"`
}

// S3Config configures the S3 client.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string

	// PathStyle addresses buckets as path segments (MinIO, localstack).
	PathStyle bool
}

// NewS3Client builds an S3 client from static configuration. Empty
// credentials leave the client anonymous.
func NewS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle,
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			Source:          "notes-config",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	return s3.New(opts)
}

// Exporter writes snapshots.
type Exporter struct {
	client Putter
	bucket string
	prefix string
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the exporter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Exporter writing to bucket under prefix.
func New(client Putter, bucket, prefix string, opts ...Option) *Exporter {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	e := &Exporter{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
		logger: slog.Default().With("component", "export"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Key returns the object key for a snapshot taken at t.
func (e *Exporter) Key(t time.Time, id string) string {
	return fmt.Sprintf("%snotes-%s-%s.json", e.prefix, t.UTC().Format("20060102T150405Z"), id)
}

// Export writes a snapshot of every note from src.
func (e *Exporter) Export(ctx context.Context, src Lister) (*Result, error) {
	if e.bucket == "" {
		return nil, ErrNoBucket
	}

	list, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: list notes: %w", err)
	}

	now := e.now()
	body, err := json.MarshalIndent(Snapshot{ExportedAt: now, Count: len(list), Notes: list}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: encode snapshot: %w", err)
	}

	key := e.Key(now, e.newID())
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"note-count":  strconv.Itoa(len(list)),
			"exported-at": now.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("export: s3 upload: %w", err)
	}

	e.logger.Info("snapshot exported", "bucket", e.bucket, "key", key, "notes", len(list))
	return &Result{Bucket: e.bucket, Key: key, Count: len(list), Bytes: len(body)}, nil
}
