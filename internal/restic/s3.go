package restic

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	defaultS3Endpoint = "s3.amazonaws.com"
	defaultS3Region   = "us-east-1"
)

// S3Location is a repository in an S3 (or S3-compatible) bucket.
//
// Credentials left empty are resolved through the AWS default chain
// (environment, shared config and SSO profiles, instance roles) and handed to
// restic as plain environment variables, so profiles restic cannot read on
// its own still work.
type S3Location struct {
	Endpoint        string // host or URL; empty means AWS
	Bucket          string
	Prefix          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Repository returns "s3:<endpoint>/<bucket>[/<prefix>]".
func (l *S3Location) Repository() string {
	endpoint := l.Endpoint
	if endpoint == "" {
		endpoint = defaultS3Endpoint
	}
	repo := fmt.Sprintf("s3:%s/%s", strings.TrimSuffix(endpoint, "/"), l.Bucket)
	if prefix := strings.Trim(l.Prefix, "/"); prefix != "" {
		repo += "/" + prefix
	}
	return repo
}

func (l *S3Location) Env(ctx context.Context) ([]string, error) {
	cfg, err := l.awsConfig(ctx)
	if err != nil {
		return nil, err
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving s3 credentials: %w", err)
	}

	env := []string{
		"AWS_ACCESS_KEY_ID=" + creds.AccessKeyID,
		"AWS_SECRET_ACCESS_KEY=" + creds.SecretAccessKey,
		"AWS_DEFAULT_REGION=" + cfg.Region,
	}
	if creds.SessionToken != "" {
		env = append(env, "AWS_SESSION_TOKEN="+creds.SessionToken)
	}
	return env, nil
}

// Validate checks the endpoint and that the bucket is reachable with the
// resolved credentials.
func (l *S3Location) Validate(ctx context.Context) error {
	if l.Bucket == "" {
		return fmt.Errorf("s3 repository requires bucket")
	}
	if (l.AccessKeyID == "") != (l.SecretAccessKey == "") {
		return fmt.Errorf("s3 access_key_id and secret_access_key must be set together")
	}

	cfg, err := l.awsConfig(ctx)
	if err != nil {
		return err
	}

	client, err := l.client(cfg)
	if err != nil {
		return err
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(l.Bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s: %w", l.Bucket, err)
	}
	return nil
}

func (*S3Location) location() {}

func (l *S3Location) awsConfig(ctx context.Context) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if l.Region != "" {
		opts = append(opts, awsconfig.WithRegion(l.Region))
	}
	if l.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(l.AccessKeyID, l.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading aws config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = defaultS3Region
	}
	return cfg, nil
}

func (l *S3Location) client(cfg aws.Config) (*s3.Client, error) {
	if l.Endpoint == "" || l.Endpoint == defaultS3Endpoint {
		return s3.NewFromConfig(cfg), nil
	}

	endpoint, err := endpointURL(l.Endpoint)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	}), nil
}

// endpointURL turns a configured endpoint into a URL, assuming https when
// no scheme is given.
func endpointURL(endpoint string) (string, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("s3 endpoint must be a valid http(s) URL: %q", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("s3 endpoint must use http or https: %q", endpoint)
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}
