package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/julianstephens/calgrid/internal/logger"
)

// Credential environment variables read by NewOffsite.
const (
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvSessionToken    = "AWS_SESSION_TOKEN"
)

var (
	ErrNoBucket      = errors.New("offsite backups need a bucket")
	ErrNoCredentials = errors.New("offsite backups need " + EnvAccessKeyID + " and " + EnvSecretAccessKey)
)

// OffsiteConfig names the S3 (or S3-compatible) bucket backups are copied to.
type OffsiteConfig struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint overrides the AWS endpoint for S3-compatible services and uses
	// path-style addressing.
	Endpoint string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Offsite copies backup files to object storage.
type Offsite struct {
	client objectPutter
	bucket string
	prefix string
}

// NewOffsite builds an uploader for cfg with static credentials from the
// environment.
func NewOffsite(cfg OffsiteConfig) (*Offsite, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	keyID := os.Getenv(EnvAccessKeyID)
	secret := os.Getenv(EnvSecretAccessKey)
	if keyID == "" || secret == "" {
		return nil, ErrNoCredentials
	}
	token := os.Getenv(EnvSessionToken)

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region: region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     keyID,
				SecretAccessKey: secret,
				SessionToken:    token,
				Source:          "environment",
			}, nil
		})),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}

	return newOffsite(s3.New(opts), cfg), nil
}

func newOffsite(client objectPutter, cfg OffsiteConfig) *Offsite {
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Offsite{client: client, bucket: cfg.Bucket, prefix: prefix}
}

// Key returns the object key a backup is stored under.
func (o *Offsite) Key(info Info) string {
	return o.prefix + path.Base(info.Name())
}

// Upload copies the backup file to the bucket and returns its object key.
func (o *Offsite) Upload(ctx context.Context, info Info) (string, error) {
	f, err := os.Open(info.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()

	key := o.Key(info)
	_, err = o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(o.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size),
		ContentType:   aws.String("application/vnd.sqlite3"),
		Metadata: map[string]string{
			"backup-time": info.Timestamp.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	logger.Info("Backup uploaded", "bucket", o.bucket, "key", key)
	return key, nil
}
