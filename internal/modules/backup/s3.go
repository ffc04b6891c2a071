package backup

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/qalam-news/core/internal/config"
)

const defaultKeyTemplate = "backups/{Y}/{m}/{filename}"

// Uploader ships a finished archive off the host.
type Uploader interface {
	Upload(ctx context.Context, filename string, payload []byte, now time.Time) (string, error)
}

// S3Uploader puts archives into an S3 compatible bucket.
type S3Uploader struct {
	client      *s3.Client
	bucket      string
	keyTemplate string
}

func NewS3Uploader(opts config.S3Options) (*S3Uploader, error) {
	if !opts.Enabled() {
		return nil, fmt.Errorf("incomplete s3 config: bucket/region/access_key_id/secret_access_key are required")
	}
	endpoint := strings.TrimSuffix(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	cfg := aws.Config{
		Region:      strings.TrimSpace(opts.Region),
		Credentials: credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			// custom endpoints always use path style
			o.UsePathStyle = true
		}
		if opts.PathStyle {
			o.UsePathStyle = true
		}
	})
	return &S3Uploader{client: client, bucket: strings.TrimSpace(opts.Bucket), keyTemplate: opts.Prefix}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, filename string, payload []byte, now time.Time) (string, error) {
	key := renderObjectKey(u.keyTemplate, filename, now)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentType:   aws.String("application/zip"),
		ContentLength: aws.Int64(int64(len(payload))),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %s: %w", key, err)
	}
	return "s3://" + u.bucket + "/" + key, nil
}

// renderObjectKey expands {Y} {m} {d} {H} {M} {s} and {filename} in template.
func renderObjectKey(template, filename string, now time.Time) string {
	tpl := strings.TrimSpace(template)
	if tpl == "" {
		tpl = defaultKeyTemplate
	}
	if !strings.Contains(tpl, "{filename}") {
		tpl = strings.TrimSuffix(tpl, "/") + "/{filename}"
	}

	replacer := strings.NewReplacer(
		"{Y}", now.Format("2006"),
		"{m}", now.Format("01"),
		"{d}", now.Format("02"),
		"{H}", now.Format("15"),
		"{M}", now.Format("04"),
		"{s}", now.Format("05"),
		"{filename}", filename,
	)
	key := normalizeObjectKey(replacer.Replace(tpl))
	if key == "" {
		return filename
	}
	return key
}

func normalizeObjectKey(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return key
}
