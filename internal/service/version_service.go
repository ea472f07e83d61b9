package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docscan/internal/model"
	appErr "github.com/xxxsen/docscan/internal/pkg/errors"
	"github.com/xxxsen/docscan/internal/pkg/timeutil"
	"github.com/xxxsen/docscan/internal/repo"
)

// VersionService applies content edits behind a snapshot of the previous
// content, and restores snapshots without taking a new one.
type VersionService struct {
	store  repo.Gateway
	atomic bool
}

func NewVersionService(store repo.Gateway, atomic bool) *VersionService {
	return &VersionService{store: store, atomic: atomic}
}

// Save snapshots the stored content and then replaces it with content. A
// non-nil baseRevision must equal the stored revision.
func (s *VersionService) Save(ctx context.Context, userID, docID, content string, baseRevision *int64) (*model.Document, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	if !s.atomic {
		return s.save(ctx, s.store, false, userID, docID, content, baseRevision)
	}
	var out *model.Document
	err := s.store.Atomic(ctx, func(g repo.Gateway) error {
		doc, err := s.save(ctx, g, true, userID, docID, content, baseRevision)
		if err != nil {
			return err
		}
		out = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *VersionService) save(ctx context.Context, g repo.Gateway, inTx bool, userID, docID, content string, baseRevision *int64) (*model.Document, error) {
	var (
		doc *model.Document
		err error
	)
	if inTx {
		doc, err = g.GetDocumentForUpdate(ctx, userID, docID)
	} else {
		doc, err = g.GetDocument(ctx, userID, docID)
	}
	if err != nil {
		return nil, err
	}
	if baseRevision != nil && *baseRevision != doc.Revision {
		return nil, appErr.ErrConflict
	}
	now := timeutil.NowUnix()
	version := &model.DocumentVersion{
		ID:         newID(),
		DocumentID: doc.ID,
		UserID:     userID,
		Revision:   doc.Revision,
		Content:    doc.Content,
		Metadata:   doc.Metadata.Clone(),
		Ctime:      now,
	}
	if err := g.CreateVersion(ctx, version); err != nil {
		return nil, fmt.Errorf("snapshot document: %w", err)
	}
	updated, err := g.UpdateContent(ctx, userID, docID, content, doc.Revision, now)
	if err != nil {
		if !inTx {
			logutil.GetLogger(ctx).Warn("content update failed after snapshot, version left orphaned",
				zap.String("document_id", docID),
				zap.String("version_id", version.ID),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("update document: %w", err)
	}
	return updated, nil
}

func (s *VersionService) ListVersions(ctx context.Context, userID, docID string) ([]model.DocumentVersion, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	if _, err := s.store.GetDocument(ctx, userID, docID); err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, userID, docID)
}

func (s *VersionService) GetVersion(ctx context.Context, userID, versionID string) (*model.DocumentVersion, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	return s.store.GetVersion(ctx, userID, versionID)
}

// Restore overwrites the document the version belongs to with the version
// content. The overwritten content is not snapshotted.
func (s *VersionService) Restore(ctx context.Context, userID, versionID string, baseRevision *int64) (*model.Document, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	version, err := s.store.GetVersion(ctx, userID, versionID)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.GetDocument(ctx, userID, version.DocumentID)
	if err != nil {
		return nil, err
	}
	if baseRevision != nil && *baseRevision != doc.Revision {
		return nil, appErr.ErrConflict
	}
	return s.store.UpdateContent(ctx, userID, doc.ID, version.Content, doc.Revision, timeutil.NowUnix())
}

// AuditOrphans lists snapshots whose edit never reached the document. An
// empty userID audits every user.
func (s *VersionService) AuditOrphans(ctx context.Context, userID string) ([]model.OrphanVersion, error) {
	orphans, err := s.store.ListOrphanVersions(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, o := range orphans {
		logutil.GetLogger(ctx).Warn("orphan version detected",
			zap.String("version_id", o.VersionID),
			zap.String("document_id", o.DocumentID),
			zap.String("user_id", o.UserID),
			zap.Int64("revision", o.Revision),
			zap.Int64("document_revision", o.DocRevision),
		)
	}
	return orphans, nil
}
