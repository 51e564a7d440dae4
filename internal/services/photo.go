package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"studyspot-backend/internal/apperror"
	"studyspot-backend/internal/config"
	"studyspot-backend/internal/metrics"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const uploadURLTTL = 5 * time.Minute

// URLSigner produces time-limited URLs for objects in the photo bucket
type URLSigner interface {
	SignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	SignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	// CanonicalURL is the unsigned address of key, served when signing fails.
	CanonicalURL(key string) string
}

// S3Signer signs URLs with the S3 presign client
type S3Signer struct {
	presign  *s3.PresignClient
	bucket   string
	region   string
	endpoint string
}

// NewS3Signer builds a signer from the aws section of the config. Static
// credentials are used when both keys are set, the default chain otherwise.
func NewS3Signer(ctx context.Context, cfg config.AWSConfig) (*S3Signer, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Signer{
		presign:  s3.NewPresignClient(client),
		bucket:   cfg.S3Bucket,
		region:   cfg.Region,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
	}, nil
}

func (s *S3Signer) SignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign get %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Signer) SignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign put %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Signer) CanonicalURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// PhotoService handles photo-related business logic
type PhotoService struct {
	photos  repository.PhotoRepository
	spots   repository.SpotRepository
	signer  URLSigner
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
}

// NewPhotoService creates a new photo service. ttl bounds the read URLs it hands out.
func NewPhotoService(
	photos repository.PhotoRepository,
	spots repository.SpotRepository,
	signer URLSigner,
	ttl time.Duration,
	m *metrics.Metrics,
) *PhotoService {
	return &PhotoService{
		photos:  photos,
		spots:   spots,
		signer:  signer,
		ttl:     ttl,
		now:     time.Now,
		metrics: m,
	}
}

// UploadRequest represents a request to get a pre-signed upload URL
type UploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	IsPrimary   bool   `json:"is_primary"`
}

// UploadResponse carries the pre-signed URL and the photo it will fill
type UploadResponse struct {
	UploadURL string        `json:"upload_url"`
	ExpiresIn int           `json:"expires_in"`
	Photo     *models.Photo `json:"photo"`
}

// RequestUpload records a photo for spotID and returns a URL the client PUTs the image to
func (s *PhotoService) RequestUpload(ctx context.Context, spotID int64, req UploadRequest) (*UploadResponse, error) {
	if !strings.HasPrefix(req.ContentType, "image/") {
		return nil, apperror.Unprocessable("content_type", "content_type must be an image type")
	}
	if _, err := s.spots.GetByID(ctx, spotID); err != nil {
		return nil, spotLookupError(spotID, err)
	}

	ext := strings.ToLower(path.Ext(req.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("studyspots/%d/%s%s", spotID, uuid.New().String(), ext)

	uploadURL, err := s.signer.SignPut(ctx, key, req.ContentType, uploadURLTTL)
	if err != nil {
		return nil, apperror.Upstream("failed to generate upload URL", err)
	}

	photo := &models.Photo{
		StudySpotID: spotID,
		URL:         s.signer.CanonicalURL(key),
		Key:         key,
		IsPrimary:   req.IsPrimary,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.NotFound("Study spot", spotID)
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.Conflict(primaryConflictMessage)
		}
		return nil, fmt.Errorf("failed to create photo record: %w", err)
	}

	log.Info().
		Int64("studyspot_id", spotID).
		Int64("photo_id", photo.ID).
		Str("key", key).
		Msg("Photo upload requested")

	return &UploadResponse{
		UploadURL: uploadURL,
		ExpiresIn: int(uploadURLTTL.Seconds()),
		Photo:     photo,
	}, nil
}

// The one-primary-per-spot index rejects the loser of two concurrent promotions
const primaryConflictMessage = "Another primary photo was set concurrently"

// SetPrimary marks photoID as the only primary photo of spotID
func (s *PhotoService) SetPrimary(ctx context.Context, spotID, photoID int64) error {
	if err := s.photos.SetPrimary(ctx, spotID, photoID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apperror.NotFoundf("Photo %d not found for study spot %d", photoID, spotID)
		case errors.Is(err, repository.ErrDuplicate):
			return apperror.Conflict(primaryConflictMessage)
		}
		return fmt.Errorf("failed to set primary photo: %w", err)
	}
	return nil
}

// ForSpots returns the photos of each spot with freshly signed URLs. Every
// requested spot has an entry, empty when it has no photos.
func (s *PhotoService) ForSpots(ctx context.Context, spotIDs []int64) (map[int64][]models.Photo, error) {
	grouped, err := s.photos.ListBySpots(ctx, spotIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}

	result := make(map[int64][]models.Photo, len(spotIDs))
	for _, id := range spotIDs {
		photos := grouped[id]
		signed := make([]models.Photo, len(photos))
		for i, photo := range photos {
			photo.URL = s.signedURL(ctx, photo.Key)
			signed[i] = photo
		}
		result[id] = signed
	}
	return result, nil
}

// signedURL never fails. A signing error degrades to the canonical URL.
func (s *PhotoService) signedURL(ctx context.Context, key string) string {
	url, err := s.signer.SignGet(ctx, key, s.ttl)
	if err != nil {
		s.metrics.SigningFallback()
		log.Warn().Err(err).Str("key", key).Msg("Serving unsigned photo URL")
		return s.signer.CanonicalURL(key)
	}
	return url
}
