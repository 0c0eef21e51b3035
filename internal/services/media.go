package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"event-rsvp-backend/internal/models"
	"event-rsvp-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const uploadExpiry = 5 * time.Minute

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// UploadRequest represents a request to get a pre-signed URL
type UploadRequest struct {
	ContentType string `json:"content_type"`
}

// UploadResponse represents the response with pre-signed URL
type UploadResponse struct {
	UploadURL string `json:"upload_url"`
	ImageURL  string `json:"image_url"`
	ExpiresIn int    `json:"expires_in"`
}

// MediaService issues upload URLs for event images
type MediaService struct {
	store     repository.Store
	presigner *s3.PresignClient
	bucket    string
	baseURL   string
}

// NewMediaService creates a media service. endpoint overrides the S3
// endpoint for S3-compatible stores and is empty on AWS.
func NewMediaService(store repository.Store, awsCfg aws.Config, bucket, endpoint string) *MediaService {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, awsCfg.Region)
	if endpoint != "" {
		baseURL = strings.TrimRight(endpoint, "/") + "/" + bucket
	}

	return &MediaService{
		store:     store,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		baseURL:   baseURL,
	}
}

// GetEventImageUploadURL presigns a PUT for a new event image and points the
// event at it. Image changes do not notify subscribers.
func (s *MediaService) GetEventImageUploadURL(ctx context.Context, actorID, eventID, contentType string) (*UploadResponse, error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", models.ErrInvalidInput, contentType)
	}

	event, err := s.store.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != actorID {
		return nil, fmt.Errorf("%w: only the event creator can change the image", models.ErrForbidden)
	}

	key := path.Join("events", eventID, uuid.New().String()+ext)
	request, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = uploadExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	imageURL := s.baseURL + "/" + key
	if _, err := s.store.Events().Update(ctx, eventID, models.EventUpdate{ImageURL: &imageURL}); err != nil {
		return nil, err
	}

	return &UploadResponse{
		UploadURL: request.URL,
		ImageURL:  imageURL,
		ExpiresIn: int(uploadExpiry.Seconds()),
	}, nil
}
