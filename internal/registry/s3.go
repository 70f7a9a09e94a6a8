package registry

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/marketplace/internal/errors"
)

// DefaultS3Region is used when neither configuration nor AWS_REGION sets one.
const DefaultS3Region = "us-east-1"

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source loads a catalog document stored as an S3 object.
type S3Source struct {
	client S3API
	bucket string
	key    string
}

// NewS3Source creates a source for an "s3://bucket/key" URL. Credentials
// come from AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN;
// without them requests are anonymous, which suits public catalog buckets.
func NewS3Source(rawURL string, opts SourceOptions) (*S3Source, error) {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return nil, err
	}

	region := opts.S3Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = DefaultS3Region
	}

	cfg := aws.Config{Region: region}
	if id := os.Getenv("AWS_ACCESS_KEY_ID"); id != "" {
		creds := aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "EnvironmentVariables",
		}
		cfg.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		})
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.S3Endpoint)
		}
		o.UsePathStyle = opts.S3PathStyle
	})

	return NewS3SourceWithClient(client, bucket, key), nil
}

// NewS3SourceWithClient creates a source backed by an existing client.
func NewS3SourceWithClient(client S3API, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

// Entries fetches and decodes the object.
func (s *S3Source) Entries(ctx context.Context) ([]*Entry, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, errors.New(errors.CodeSourceUnavailable).
			WithDetail("Could not fetch catalog object " + s.String()).
			Wrap(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxCatalogBytes))
	if err != nil {
		return nil, errors.New(errors.CodeSourceUnavailable).Wrap(err)
	}

	format := FormatFor(s.key)
	if out.ContentType != nil && strings.Contains(*out.ContentType, "yaml") {
		format = FormatYAML
	}
	return Decode(data, format)
}

func (s *S3Source) String() string { return "s3://" + s.bucket + "/" + s.key }

func parseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "s3" || u.Host == "" || strings.Trim(u.Path, "/") == "" {
		return "", "", errors.New(errors.CodeInvalidConfigValue).
			WithDetailf("Invalid S3 catalog URL %q", raw).
			WithSuggestion("Use the form s3://bucket/path/to/catalog.json")
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}
