package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client wraps the AWS SDK v2 S3 client for minting read-only download URLs.
// It works against AWS proper as well as S3-compatible endpoints.
type Client struct {
	presign *s3.PresignClient
}

// NewClientFromEnv initialises a Client using environment variables.
//
// Required environment variables:
//   - S3_ACCESS_KEY / S3_SECRET_KEY: static credentials.
//
// Optional environment variables:
//   - S3_ENDPOINT: host:port or full URL of an S3-compatible endpoint;
//     when empty the AWS default endpoint for the region is used.
//   - S3_REGION (default "ap-south-1").
//   - S3_DISABLE_TLS (bool; default false) applied when S3_ENDPOINT has no scheme.
//   - S3_FORCE_PATH_STYLE (bool; default false).
func NewClientFromEnv() (*Client, error) {
	accessKey := os.Getenv("S3_ACCESS_KEY")
	secretKey := os.Getenv("S3_SECRET_KEY")
	if accessKey == "" || secretKey == "" {
		return nil, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required")
	}

	region := os.Getenv("S3_REGION")
	if region == "" {
		region = "ap-south-1"
	}

	forcePathStyle, _ := strconv.ParseBool(os.Getenv("S3_FORCE_PATH_STYLE"))

	endpoint := strings.TrimSpace(os.Getenv("S3_ENDPOINT"))
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		scheme := "https"
		if disableTLS, _ := strconv.ParseBool(os.Getenv("S3_DISABLE_TLS")); disableTLS {
			scheme = "http"
		}
		endpoint = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	cfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		return nil, err
	}

	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = forcePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &Client{presign: s3.NewPresignClient(api)}, nil
}

// PresignGet generates a presigned GET URL for the provided bucket/key valid
// for the given TTL. Only GET is ever presigned; firmware delivery is strictly
// read-only.
func (c *Client) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if c == nil {
		return "", errors.New("nil client")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}

	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
