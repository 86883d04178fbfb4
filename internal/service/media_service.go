package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/Rawann0m/EcoNest-sub000/internal/storage"
	"github.com/google/uuid"
)

// MediaService stores images attached to messages and posts. Uploads
// happen before the send: the client uploads, gets back an image part,
// and includes it in the message or post body.
type MediaService struct {
	s3 *storage.S3Storage
}

func NewMediaService(s3 *storage.S3Storage) *MediaService {
	return &MediaService{s3: s3}
}

// UploadImage validates and re-encodes an uploaded image, stores it,
// and returns a ready-to-embed image content part. Scope is
// "messages" or "posts". Image parts must carry absolute URLs, so the
// caller supplies the public API base.
func (s *MediaService) UploadImage(ctx context.Context, userID uint, scope string, fileReader io.Reader, publicAPIBaseURL string) (*models.ContentPart, error) {
	if s.s3 == nil {
		return nil, ErrStorageNotConfigured
	}
	publicAPIBaseURL = strings.TrimRight(strings.TrimSpace(publicAPIBaseURL), "/")
	if publicAPIBaseURL == "" {
		return nil, errors.New("missing public api base url")
	}
	if scope != "messages" && scope != "posts" {
		scope = "messages"
	}

	jpegBytes, contentType, outSize, err := storage.ProcessImage(fileReader, storage.DefaultMediaOptions())
	if err != nil {
		return nil, err
	}

	key := storage.MediaKey(scope, userID, uuid.NewString())
	if _, err := s.s3.PutObject(ctx, key, bytes.NewReader(jpegBytes), outSize, contentType); err != nil {
		return nil, err
	}

	return &models.ContentPart{
		Kind: models.ImagePart,
		URL:  publicAPIBaseURL + "/media/" + key,
	}, nil
}

// FetchObject streams a stored object for the media proxy route. The
// key has already passed SafeJoinMediaPath.
func (s *MediaService) FetchObject(ctx context.Context, key string) (io.ReadCloser, storage.ObjectStat, error) {
	if s.s3 == nil {
		return nil, storage.ObjectStat{}, ErrStorageNotConfigured
	}
	obj, st, err := s.s3.GetObject(ctx, key)
	if err != nil {
		return nil, storage.ObjectStat{}, err
	}
	return obj, st, nil
}
