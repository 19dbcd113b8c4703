package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/DavidGomesv/geradorDeRelatorio/internal/domain/report"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/apperror"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/imaging"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/logger"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/storage"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/validator"
)

// File is an incoming photograph.
type File struct {
	Name   string
	Reader io.Reader
}

// Service stages uploads against a layout
type Service struct {
	cache    Cache
	layout   *report.Layout
	maxBytes int64
	now      func() time.Time
}

// NewService creates upload service
func NewService(cache Cache, layout *report.Layout, maxBytes int64) *Service {
	if layout == nil {
		layout = report.DefaultLayout()
	}
	if maxBytes <= 0 {
		maxBytes = storage.DefaultMaxFileSize
	}
	return &Service{
		cache:    cache,
		layout:   layout,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// ValidateSession checks a session identifier.
func ValidateSession(session string) error {
	if err := validator.ValidateVar(session, "notblank,max=64,excludesall=:/\\ "); err != nil {
		return apperror.Validation("validate session", ErrInvalidSession.Error(),
			map[string]string{"session": ErrInvalidSession.Error()})
	}
	return nil
}

// SaveForm merges the non-empty fields of form into the session form.
func (s *Service) SaveForm(ctx context.Context, session string, form Form) (Form, error) {
	if err := ValidateSession(session); err != nil {
		return Form{}, err
	}

	current, err := s.cache.Form(ctx, session)
	if err != nil {
		return Form{}, apperror.Wrap(apperror.KindResource, "save form", "failed to read session", err)
	}
	merged := current.Merge(form)
	if merged == current {
		return merged, nil
	}
	if err := s.cache.SaveForm(ctx, session, merged); err != nil {
		return Form{}, apperror.Wrap(apperror.KindResource, "save form", "failed to save session", err)
	}
	return merged, nil
}

// Stage validates files and replaces the uploads of category. Every file is
// kept in the given order, identical ones included.
func (s *Service) Stage(ctx context.Context, session, category string, files []File) ([]Upload, error) {
	if err := ValidateSession(session); err != nil {
		return nil, err
	}
	spec, ok := s.layout.Spec(category)
	if !ok {
		return nil, apperror.Validation("stage uploads", report.ErrUnknownCategory.Error(),
			map[string]string{"category": fmt.Sprintf("%s: %s", report.ErrUnknownCategory, category)})
	}
	if len(files) == 0 {
		return nil, apperror.Validation("stage uploads", ErrNoFiles.Error(), nil)
	}

	uploads := make([]Upload, 0, len(files))
	details := map[string]string{}

	for _, f := range files {
		name := filepath.Base(f.Name)
		data, mimeType, err := storage.ValidateFile(f.Reader, storage.ImageMimeTypes, s.maxBytes)
		if err != nil {
			details[name] = fileError(err).Error()
			continue
		}

		uploads = append(uploads, Upload{
			ID:          IDFor(data),
			Category:    category,
			Name:        name,
			ContentType: mimeType,
			Size:        int64(len(data)),
			Data:        data,
			StagedAt:    s.now().UTC(),
		})
	}

	if spec.MaxImages > 0 && len(uploads) > spec.MaxImages {
		details[category] = fmt.Sprintf("%s (%d > %d)", report.ErrTooManyImages, len(uploads), spec.MaxImages)
	}
	if len(details) > 0 {
		return nil, apperror.Validation("stage uploads", "files were rejected", details)
	}

	if err := s.cache.Stage(ctx, session, category, uploads); err != nil {
		return nil, apperror.Wrap(apperror.KindResource, "stage uploads", "failed to save uploads", err)
	}

	logger.LogInfo(ctx, "uploads staged", "session", session, "category", category, "files", len(uploads))

	return uploads, nil
}

// Status reports the form completeness and per-category counts.
func (s *Service) Status(ctx context.Context, session string) (*Status, error) {
	if err := ValidateSession(session); err != nil {
		return nil, err
	}

	form, err := s.cache.Form(ctx, session)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindResource, "session status", "failed to read session", err)
	}
	counts, err := s.cache.Counts(ctx, session)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindResource, "session status", "failed to read session", err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return &Status{
		Session: session,
		Form:    form,
		Missing: form.Missing(),
		Counts:  counts,
		Total:   total,
	}, nil
}

// Assets returns the staged photographs of every layout category.
func (s *Service) Assets(ctx context.Context, session string) (map[string][]imaging.Asset, error) {
	if err := ValidateSession(session); err != nil {
		return nil, err
	}

	assets := make(map[string][]imaging.Asset)
	for _, key := range s.layout.Keys() {
		uploads, err := s.cache.Uploads(ctx, session, key)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindResource, "load uploads", "failed to read session", err)
		}
		for i := range uploads {
			assets[key] = append(assets[key], uploads[i].Asset())
		}
	}
	return assets, nil
}

// Clear drops everything cached for session.
func (s *Service) Clear(ctx context.Context, session string) error {
	if err := ValidateSession(session); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, session); err != nil {
		return apperror.Wrap(apperror.KindResource, "clear session", "failed to invalidate session", err)
	}
	logger.FromContext(ctx).Info().Str("session", session).Msg("session cleared")
	return nil
}

func fileError(err error) error {
	switch {
	case errors.Is(err, storage.ErrFileTooLarge):
		return ErrFileTooLarge
	case errors.Is(err, storage.ErrInvalidMimeType), errors.Is(err, storage.ErrEmptyFile):
		return ErrInvalidMime
	default:
		return err
	}
}
