package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ImageService stores card artwork in an S3-compatible bucket and resolves the
// public URLs written into catalog rows.
type ImageService struct {
	client   *s3.Client
	bucket   string
	region   string
	CardRoot string
}

func NewImageService(key, secret, region, bucket, cardRoot string) (*ImageService, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config: %w", err)
	}

	return &ImageService{
		client:   s3.NewFromConfig(cfg),
		bucket:   bucket,
		region:   region,
		CardRoot: strings.TrimPrefix(cardRoot, "/"),
	}, nil
}

// CardImageKey builds the object key for a card's artwork.
func (s *ImageService) CardImageKey(season, cardCode string) string {
	return fmt.Sprintf("%s/%s/%s.jpg",
		s.CardRoot,
		strings.ToLower(season),
		strings.ToLower(cardCode),
	)
}

// CardImageURL resolves the public URL for a card's artwork.
func (s *ImageService) CardImageURL(season, cardCode string) string {
	return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s",
		s.bucket, s.region, s.CardImageKey(season, cardCode))
}

// UploadCardImage stores artwork for a catalog card.
func (s *ImageService) UploadCardImage(ctx context.Context, season, cardCode string, data []byte, contentType string) (string, error) {
	key := s.CardImageKey(season, cardCode)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         "public-read",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload card image: %w", err)
	}

	return s.CardImageURL(season, cardCode), nil
}

// DeleteCardImage removes artwork for a catalog card.
func (s *ImageService) DeleteCardImage(ctx context.Context, season, cardCode string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.CardImageKey(season, cardCode)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete card image: %w", err)
	}
	return nil
}
