package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/docscan/internal/model"
)

// Gateway is the persistence surface the services depend on: CRUD on
// documents, create/read on versions, and the scoped list query.
type Gateway interface {
	CreateDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, userID, docID string) (*model.Document, error)
	GetDocumentForUpdate(ctx context.Context, userID, docID string) (*model.Document, error)
	UpdateContent(ctx context.Context, userID, docID, content string, baseRevision, mtime int64) (*model.Document, error)
	DeleteDocument(ctx context.Context, userID, docID string) error
	QueryDocuments(ctx context.Context, userID string, q DocumentQuery) ([]model.Document, int, error)
	ListAllDocuments(ctx context.Context, userID string) ([]model.Document, error)

	CreateVersion(ctx context.Context, version *model.DocumentVersion) error
	ListVersions(ctx context.Context, userID, docID string) ([]model.DocumentVersion, error)
	ListAllVersions(ctx context.Context, userID string) ([]model.DocumentVersion, error)
	GetVersion(ctx context.Context, userID, versionID string) (*model.DocumentVersion, error)
	CountVersions(ctx context.Context, userID, docID string) (int, error)
	DeleteVersions(ctx context.Context, userID, docID string) error
	ListOrphanVersions(ctx context.Context, userID string) ([]model.OrphanVersion, error)

	// Atomic runs fn against a gateway bound to a single transaction.
	Atomic(ctx context.Context, fn func(g Gateway) error) error
}

type Store struct {
	db        *sqlx.DB
	documents *DocumentRepo
	versions  *VersionRepo
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, documents: NewDocumentRepo(db), versions: NewVersionRepo(db)}
}

func newTxStore(tx *sqlx.Tx) *Store {
	return &Store{documents: NewDocumentRepo(tx), versions: NewVersionRepo(tx)}
}

func (s *Store) Atomic(ctx context.Context, fn func(g Gateway) error) error {
	if s.db == nil {
		return fn(s)
	}
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(newTxStore(tx))
	})
}

func (s *Store) CreateDocument(ctx context.Context, doc *model.Document) error {
	return s.documents.Create(ctx, doc)
}

func (s *Store) GetDocument(ctx context.Context, userID, docID string) (*model.Document, error) {
	return s.documents.GetByID(ctx, userID, docID)
}

func (s *Store) GetDocumentForUpdate(ctx context.Context, userID, docID string) (*model.Document, error) {
	return s.documents.GetByIDForUpdate(ctx, userID, docID)
}

func (s *Store) UpdateContent(ctx context.Context, userID, docID, content string, baseRevision, mtime int64) (*model.Document, error) {
	return s.documents.UpdateContent(ctx, userID, docID, content, baseRevision, mtime)
}

func (s *Store) DeleteDocument(ctx context.Context, userID, docID string) error {
	return s.documents.Delete(ctx, userID, docID)
}

func (s *Store) QueryDocuments(ctx context.Context, userID string, q DocumentQuery) ([]model.Document, int, error) {
	return s.documents.Query(ctx, userID, q)
}

func (s *Store) ListAllDocuments(ctx context.Context, userID string) ([]model.Document, error) {
	return s.documents.ListByUser(ctx, userID)
}

func (s *Store) CreateVersion(ctx context.Context, version *model.DocumentVersion) error {
	return s.versions.Create(ctx, version)
}

func (s *Store) ListVersions(ctx context.Context, userID, docID string) ([]model.DocumentVersion, error) {
	return s.versions.List(ctx, userID, docID)
}

func (s *Store) ListAllVersions(ctx context.Context, userID string) ([]model.DocumentVersion, error) {
	return s.versions.ListByUser(ctx, userID)
}

func (s *Store) GetVersion(ctx context.Context, userID, versionID string) (*model.DocumentVersion, error) {
	return s.versions.GetByID(ctx, userID, versionID)
}

func (s *Store) CountVersions(ctx context.Context, userID, docID string) (int, error) {
	return s.versions.Count(ctx, userID, docID)
}

func (s *Store) DeleteVersions(ctx context.Context, userID, docID string) error {
	return s.versions.DeleteByDocument(ctx, userID, docID)
}

func (s *Store) ListOrphanVersions(ctx context.Context, userID string) ([]model.OrphanVersion, error) {
	return s.versions.ListOrphans(ctx, userID)
}
