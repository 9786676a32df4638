// Package object provisions the per-user prefix in the S3-compatible
// object store by writing a zero-byte placeholder. Writing the same key
// twice is a no-op at the object layer, which makes creation idempotent.
package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/akarpov87/identity-gateway/internal/gateway/models"
)

// Client is the slice of the S3 API the adapter uses.
// *s3.Client satisfies it.
type Client interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Adapter keys off the canonical id: the prefix is derived from it, so the
// relational adapter must have run first.
type Adapter struct {
	client Client
	bucket string
}

func New(client Client, bucket string) *Adapter {
	return &Adapter{client: client, bucket: bucket}
}

func (a *Adapter) Kind() models.StoreKind {
	return models.StoreObject
}

// MarkerKey returns the placeholder key under the user's prefix.
func MarkerKey(userID string) string {
	return fmt.Sprintf("user-%s/.keep", userID)
}

func (a *Adapter) EnsureProvisioned(ctx context.Context, p *models.Principal) (bool, error) {
	if p.ID == "" {
		return false, errors.New("object prefix provisioning requires a profile id")
	}
	key := MarkerKey(p.ID)

	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return false, nil
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return false, fmt.Errorf("placeholder probe: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return false, fmt.Errorf("placeholder write: %w", err)
	}
	return true, nil
}
