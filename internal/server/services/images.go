package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/logging"
	"github.com/dmitrijs2005/bountyboard/internal/server/storage"
)

// ImageService turns stored object keys into URLs a browser can load.
type ImageService struct {
	store storage.ObjectStore
	log   logging.Logger
}

func NewImageService(store storage.ObjectStore, log logging.Logger) *ImageService {
	return &ImageService{store: store, log: log.With("module", "images")}
}

func (s *ImageService) URL(ctx context.Context, path string) (string, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" || strings.Contains(path, "..") {
		return "", common.NewValidationError("path", "is not a valid image path")
	}
	u, err := s.store.PublicURL(ctx, path)
	if err != nil {
		return "", fail(ctx, s.log, "resolve image", err)
	}
	return u, nil
}
