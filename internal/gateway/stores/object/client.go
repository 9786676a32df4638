package object

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Settings for the S3-compatible backend (MinIO in private deployments).
type Settings struct {
	RootUser     string
	RootPassword string
	Region       string
	BaseEndpoint string
}

// NewS3Client builds an S3 client with static credentials and a custom
// endpoint. Path-style addressing is forced because MinIO does not serve
// virtual-hosted buckets out of the box.
func NewS3Client(ctx context.Context, s Settings) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(s.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.RootUser,
			s.RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}
