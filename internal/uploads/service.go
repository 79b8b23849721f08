package uploads

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/printdock/printdock-backend/pkg/config"
	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/logger"
	"github.com/printdock/printdock-backend/pkg/storage/gcs"
)

// Uploaded describes a stored file.
type Uploaded struct {
	URL         string `json:"url"`
	Object      string `json:"object"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Service stores normalized files in object storage.
type Service interface {
	Limit(kind enums.MediaKind) int64
	Upload(ctx context.Context, kind enums.MediaKind, file File) (*Uploaded, error)
}

type objectStore interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) (gcs.Object, error)
}

type service struct {
	store  objectStore
	limits config.UploadsConfig
	logg   *logger.Logger
	newID  func() uuid.UUID
}

func NewService(store objectStore, limits config.UploadsConfig, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if limits.GeneralMaxBytes <= 0 || limits.ProfileMaxBytes <= 0 {
		return nil, fmt.Errorf("upload limits must be positive")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{store: store, limits: limits, logg: logg, newID: uuid.New}, nil
}

// Limit returns the byte cap for kind. Profile photos use the smaller cap.
func (s *service) Limit(kind enums.MediaKind) int64 {
	if kind == enums.MediaKindProfile {
		return s.limits.ProfileMaxBytes
	}
	return s.limits.GeneralMaxBytes
}

func (s *service) Upload(ctx context.Context, kind enums.MediaKind, file File) (*Uploaded, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown upload kind")
	}
	if limit := s.Limit(kind); file.Size() > limit {
		return nil, tooLarge(limit)
	}
	object := path.Join("uploads", kind.String(), s.newID().String(), sanitizeName(file.Name))
	stored, err := s.store.Upload(ctx, object, file.ContentType, file.Reader())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"object": object, "size": file.Size()})
	s.logg.Info(ctx, "upload stored")
	return &Uploaded{
		URL:         stored.URL,
		Object:      object,
		ContentType: file.ContentType,
		Size:        file.Size(),
	}, nil
}

// sanitizeName keeps a lowercase ascii slug of the base name and its extension.
func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(path.Ext(name))
	stem := strings.TrimSuffix(name, path.Ext(name))

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(stem) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "file"
	}
	if len(slug) > 80 {
		slug = slug[:80]
	}
	return slug + ext
}
