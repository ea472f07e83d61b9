package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docscan/internal/filestore"
	"github.com/xxxsen/docscan/internal/model"
	appErr "github.com/xxxsen/docscan/internal/pkg/errors"
	"github.com/xxxsen/docscan/internal/pkg/timeutil"
	"github.com/xxxsen/docscan/internal/repo"
)

const (
	maxTitleRunes = 200
	sourceOCR     = "OCR"
	sourceManual  = "manual"
)

type DocumentService struct {
	store   repo.Gateway
	cascade bool
}

func NewDocumentService(store repo.Gateway, cascade bool) *DocumentService {
	return &DocumentService{store: store, cascade: cascade}
}

type DocumentCreateInput struct {
	Title    string
	Content  string
	Metadata model.DocumentMetadata
}

func (s *DocumentService) Create(ctx context.Context, userID string, input DocumentCreateInput) (*model.Document, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", appErr.ErrInvalid)
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return nil, fmt.Errorf("title too long: %w", appErr.ErrInvalid)
	}
	meta := input.Metadata.Clone()
	if meta.ImageKey != "" && !filestore.OwnedBy(meta.ImageKey, userID) {
		return nil, fmt.Errorf("image key not owned by user: %w", appErr.ErrInvalid)
	}
	if meta.Source == "" {
		meta.Source = sourceManual
	}
	now := timeutil.NowUnix()
	doc := &model.Document{
		ID:       newID(),
		UserID:   userID,
		Title:    title,
		Content:  input.Content,
		Metadata: meta,
		Revision: 1,
		Ctime:    now,
		Mtime:    now,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ScanTitle names a document created from a recognition result.
func ScanTitle(at time.Time) string {
	return "Scanned Document " + at.Format("2006-01-02 15:04:05")
}

func (s *DocumentService) Get(ctx context.Context, userID, docID string) (*model.Document, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	return s.store.GetDocument(ctx, userID, docID)
}

// Delete removes the document and, when cascading, its version history.
func (s *DocumentService) Delete(ctx context.Context, userID, docID string) error {
	if userID == "" {
		return appErr.ErrUnauthorized
	}
	if !s.cascade {
		return s.store.DeleteDocument(ctx, userID, docID)
	}
	return s.store.Atomic(ctx, func(g repo.Gateway) error {
		if _, err := g.GetDocumentForUpdate(ctx, userID, docID); err != nil {
			return err
		}
		count, err := g.CountVersions(ctx, userID, docID)
		if err != nil {
			return err
		}
		if err := g.DeleteVersions(ctx, userID, docID); err != nil {
			return err
		}
		if err := g.DeleteDocument(ctx, userID, docID); err != nil {
			return err
		}
		logutil.GetLogger(ctx).Info("document deleted",
			zap.String("document_id", docID),
			zap.Int("versions", count),
		)
		return nil
	})
}
