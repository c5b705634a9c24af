package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ce-community/cebot/internal/domain/reconcile"
)

// ObjectPutter is the part of the S3 client the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveService stores pass reports as JSON objects in a Spaces bucket.
type ArchiveService struct {
	client ObjectPutter
	bucket string
	prefix string
}

func NewArchiveService(spacesKey, spacesSecret, region, bucket, prefix string) (*ArchiveService, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(spacesKey, spacesSecret, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load Spaces config: %w", err)
	}
	return NewArchiveServiceWithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func NewArchiveServiceWithClient(client ObjectPutter, bucket, prefix string) *ArchiveService {
	return &ArchiveService{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Key is the object key of a report: <prefix>/YYYY/MM/DD/<started>-<id>.json
func (a *ArchiveService) Key(report *reconcile.Report) string {
	started := report.StartedAt.UTC()
	name := fmt.Sprintf("%s-%s.json", started.Format("150405"), report.ID)
	return path.Join(a.prefix, started.Format("2006/01/02"), name)
}

func (a *ArchiveService) Archive(ctx context.Context, report *reconcile.Report) error {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	key := a.Key(report)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	slog.Debug("Pass report archived",
		slog.String("type", "sys"),
		slog.String("bucket", a.bucket),
		slog.String("key", key))
	return nil
}
