package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docscan/internal/model"
	"github.com/xxxsen/docscan/internal/recognition"
	"github.com/xxxsen/docscan/internal/session"
)

// Workspace ties document actions to a session: it keeps the selected
// document current and refreshes the session list after every mutation.
type Workspace struct {
	docs     *DocumentService
	versions *VersionService
	list     *ListController
}

func NewWorkspace(docs *DocumentService, versions *VersionService, list *ListController) *Workspace {
	return &Workspace{docs: docs, versions: versions, list: list}
}

type ScanDocumentInput struct {
	Title    string
	Result   recognition.Result
	ImageKey string
}

func (w *Workspace) CreateFromRecognition(ctx context.Context, sess *session.Session, input ScanDocumentInput) (*model.Document, error) {
	title := input.Title
	if title == "" {
		title = ScanTitle(time.Now())
	}
	confidence := input.Result.Confidence
	return w.Create(ctx, sess, DocumentCreateInput{
		Title:   title,
		Content: input.Result.Text,
		Metadata: model.DocumentMetadata{
			Source:     sourceOCR,
			Language:   input.Result.Language,
			Confidence: &confidence,
			Latex:      input.Result.Latex,
			ImageKey:   input.ImageKey,
		},
	})
}

func (w *Workspace) Create(ctx context.Context, sess *session.Session, input DocumentCreateInput) (*model.Document, error) {
	doc, err := w.docs.Create(ctx, sess.UserID, input)
	if err != nil {
		return nil, err
	}
	sess.Accept(doc.ID, sess.Begin(doc.ID), doc)
	w.refresh(ctx, sess)
	return doc, nil
}

// Open selects a document for editing.
func (w *Workspace) Open(ctx context.Context, sess *session.Session, docID string) (*model.Document, error) {
	token := sess.Begin(docID)
	doc, err := w.docs.Get(ctx, sess.UserID, docID)
	if err != nil {
		return nil, err
	}
	w.accept(ctx, sess, docID, token, doc)
	return doc, nil
}

func (w *Workspace) Save(ctx context.Context, sess *session.Session, docID, content string, baseRevision *int64) (*model.Document, error) {
	token := sess.Begin(docID)
	doc, err := w.versions.Save(ctx, sess.UserID, docID, content, baseRevision)
	if err != nil {
		return nil, err
	}
	w.accept(ctx, sess, docID, token, doc)
	w.refresh(ctx, sess)
	return doc, nil
}

func (w *Workspace) Restore(ctx context.Context, sess *session.Session, versionID string, baseRevision *int64) (*model.Document, error) {
	version, err := w.versions.GetVersion(ctx, sess.UserID, versionID)
	if err != nil {
		return nil, err
	}
	token := sess.Begin(version.DocumentID)
	doc, err := w.versions.Restore(ctx, sess.UserID, versionID, baseRevision)
	if err != nil {
		return nil, err
	}
	w.accept(ctx, sess, doc.ID, token, doc)
	w.refresh(ctx, sess)
	return doc, nil
}

func (w *Workspace) Delete(ctx context.Context, sess *session.Session, docID string) error {
	if err := w.docs.Delete(ctx, sess.UserID, docID); err != nil {
		return err
	}
	sess.ClearSelected(docID)
	w.refresh(ctx, sess)
	return nil
}

func (w *Workspace) History(ctx context.Context, sess *session.Session, docID string) ([]model.DocumentVersion, error) {
	return w.versions.ListVersions(ctx, sess.UserID, docID)
}

func (w *Workspace) List(ctx context.Context, sess *session.Session, patch ListParamsPatch) (*ListResult, error) {
	return w.list.Update(ctx, sess, patch)
}

func (w *Workspace) accept(ctx context.Context, sess *session.Session, docID string, token uint64, doc *model.Document) {
	if !sess.Accept(docID, token, doc) {
		logutil.GetLogger(ctx).Debug("stale document response discarded",
			zap.String("document_id", docID),
			zap.Uint64("token", token),
		)
	}
}

// refresh failures are already recorded on the session list.
func (w *Workspace) refresh(ctx context.Context, sess *session.Session) {
	_, _ = w.list.Refresh(ctx, sess)
}
