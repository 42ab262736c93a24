package storage

import (
	"context"
	"fmt"
	"strings"

	"CaseReview/internal/config"
	"CaseReview/internal/constants"

	"go.uber.org/zap"
)

// Backend stores finished report files under slash-separated folder paths.
type Backend interface {
	Name() string
	EnsureFolder(ctx context.Context, path string) error
	Upload(ctx context.Context, folder, name string, data []byte) error
}

// UploadError is a non-success response from a storage backend.
type UploadError struct {
	Op     string
	Path   string
	Status int
	Body   string
}

func (e *UploadError) Error() string {
	switch e.Op {
	case "lookup":
		return fmt.Sprintf(constants.ErrFolderLookupFailed, e.Path, e.Status, e.Body)
	case "mkdir":
		return fmt.Sprintf(constants.ErrFolderCreateFailed, e.Path, e.Status, e.Body)
	default:
		return fmt.Sprintf(constants.ErrUploadFailed, e.Path, e.Status, e.Body)
	}
}

func (e *UploadError) Unwrap() error {
	return constants.ErrUpload
}

// New builds the backend selected by cfg.Storage.Backend.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (Backend, error) {
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}
	switch cfg.Storage.Backend {
	case config.StorageS3:
		return NewS3Bucket(ctx, cfg.Storage, log)
	default:
		return NewGraphDrive(ctx, cfg.Storage, log), nil
	}
}

// JoinPath joins folder segments with "/" and drops empty parts.
func JoinPath(parts ...string) string {
	var segs []string
	for _, p := range parts {
		for _, s := range strings.Split(p, "/") {
			if s = strings.TrimSpace(s); s != "" {
				segs = append(segs, s)
			}
		}
	}
	return strings.Join(segs, "/")
}
