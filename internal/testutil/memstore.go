// Package testutil holds in-memory stand-ins for the postgres backed stores.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/docscan/internal/model"
	appErr "github.com/xxxsen/docscan/internal/pkg/errors"
	"github.com/xxxsen/docscan/internal/repo"
)

// MemStore implements repo.Gateway on maps. The Fail* hooks let tests make a
// single operation fail.
type MemStore struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	docs     map[string]model.Document
	versions map[string]model.DocumentVersion

	FailCreateVersion error
	FailUpdateContent error
	FailQuery         error
	FailDelete        error

	Queries int
	// Offsets records the offset of every QueryDocuments call.
	Offsets []uint64
}

func NewMemStore() *MemStore {
	return &MemStore{
		docs:     make(map[string]model.Document),
		versions: make(map[string]model.DocumentVersion),
	}
}

func (m *MemStore) Atomic(ctx context.Context, fn func(g repo.Gateway) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	docs := make(map[string]model.Document, len(m.docs))
	for k, v := range m.docs {
		docs[k] = v
	}
	versions := make(map[string]model.DocumentVersion, len(m.versions))
	for k, v := range m.versions {
		versions[k] = v
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.docs = docs
		m.versions = versions
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; ok {
		return appErr.ErrConflict
	}
	stored := *doc
	stored.Metadata = doc.Metadata.Clone()
	m.docs[doc.ID] = stored
	return nil
}

func (m *MemStore) GetDocument(ctx context.Context, userID, docID string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok || doc.UserID != userID {
		return nil, appErr.ErrNotFound
	}
	doc.Metadata = doc.Metadata.Clone()
	return &doc, nil
}

func (m *MemStore) GetDocumentForUpdate(ctx context.Context, userID, docID string) (*model.Document, error) {
	return m.GetDocument(ctx, userID, docID)
}

func (m *MemStore) UpdateContent(ctx context.Context, userID, docID, content string, baseRevision, mtime int64) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailUpdateContent != nil {
		return nil, m.FailUpdateContent
	}
	doc, ok := m.docs[docID]
	if !ok || doc.UserID != userID {
		return nil, appErr.ErrNotFound
	}
	if doc.Revision != baseRevision {
		return nil, appErr.ErrConflict
	}
	doc.Content = content
	doc.Revision = baseRevision + 1
	doc.Mtime = mtime
	m.docs[docID] = doc
	out := doc
	out.Metadata = doc.Metadata.Clone()
	return &out, nil
}

func (m *MemStore) DeleteDocument(ctx context.Context, userID, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete != nil {
		return m.FailDelete
	}
	doc, ok := m.docs[docID]
	if !ok || doc.UserID != userID {
		return appErr.ErrNotFound
	}
	delete(m.docs, docID)
	return nil
}

func (m *MemStore) QueryDocuments(ctx context.Context, userID string, q repo.DocumentQuery) ([]model.Document, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries++
	m.Offsets = append(m.Offsets, q.Offset)
	if m.FailQuery != nil {
		return nil, 0, m.FailQuery
	}
	needle := strings.ToLower(q.Search)
	matched := make([]model.Document, 0)
	for _, doc := range m.docs {
		if doc.UserID != userID {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(doc.Title), needle) &&
			!strings.Contains(strings.ToLower(doc.Content), needle) {
			continue
		}
		matched = append(matched, doc)
	}
	desc := q.SortOrder != model.SortOrderAsc
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		c := compareDocs(a, b, q.SortBy)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
	total := len(matched)
	if q.Limit > 0 {
		start := int(q.Offset)
		if start > total {
			start = total
		}
		end := start + int(q.Limit)
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func compareDocs(a, b model.Document, sortBy string) int {
	switch sortBy {
	case model.SortByTitle:
		return strings.Compare(a.Title, b.Title)
	case model.SortByCreatedAt:
		return compareInt(a.Ctime, b.Ctime)
	default:
		return compareInt(a.Mtime, b.Mtime)
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (m *MemStore) ListAllDocuments(ctx context.Context, userID string) ([]model.Document, error) {
	docs, _, err := m.QueryDocuments(ctx, userID, repo.DocumentQuery{SortBy: model.SortByCreatedAt, SortOrder: model.SortOrderAsc})
	return docs, err
}

func (m *MemStore) CreateVersion(ctx context.Context, version *model.DocumentVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreateVersion != nil {
		return m.FailCreateVersion
	}
	stored := *version
	stored.Metadata = version.Metadata.Clone()
	m.versions[version.ID] = stored
	return nil
}

func (m *MemStore) ListVersions(ctx context.Context, userID, docID string) ([]model.DocumentVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.DocumentVersion, 0)
	for _, v := range m.versions {
		if v.UserID == userID && v.DocumentID == docID {
			out = append(out, v)
		}
	}
	sortVersions(out)
	return out, nil
}

func (m *MemStore) ListAllVersions(ctx context.Context, userID string) ([]model.DocumentVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.DocumentVersion, 0)
	for _, v := range m.versions {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out, nil
}

func sortVersions(out []model.DocumentVersion) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revision != out[j].Revision {
			return out[i].Revision > out[j].Revision
		}
		if out[i].Ctime != out[j].Ctime {
			return out[i].Ctime > out[j].Ctime
		}
		return out[i].ID > out[j].ID
	})
}

func (m *MemStore) GetVersion(ctx context.Context, userID, versionID string) (*model.DocumentVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[versionID]
	if !ok || v.UserID != userID {
		return nil, appErr.ErrNotFound
	}
	return &v, nil
}

func (m *MemStore) CountVersions(ctx context.Context, userID, docID string) (int, error) {
	versions, err := m.ListVersions(ctx, userID, docID)
	return len(versions), err
}

func (m *MemStore) DeleteVersions(ctx context.Context, userID, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, v := range m.versions {
		if v.UserID == userID && v.DocumentID == docID {
			delete(m.versions, id)
		}
	}
	return nil
}

func (m *MemStore) ListOrphanVersions(ctx context.Context, userID string) ([]model.OrphanVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type slot struct {
		docID    string
		revision int64
	}
	newest := make(map[slot]model.DocumentVersion)
	for _, v := range m.versions {
		key := slot{v.DocumentID, v.Revision}
		cur, ok := newest[key]
		if !ok || v.Ctime > cur.Ctime || (v.Ctime == cur.Ctime && v.ID > cur.ID) {
			newest[key] = v
		}
	}
	out := make([]model.OrphanVersion, 0)
	for _, v := range m.versions {
		if userID != "" && v.UserID != userID {
			continue
		}
		doc, ok := m.docs[v.DocumentID]
		if !ok || doc.UserID != v.UserID {
			continue
		}
		duplicate := newest[slot{v.DocumentID, v.Revision}].ID != v.ID
		if v.Revision < doc.Revision && !duplicate {
			continue
		}
		out = append(out, model.OrphanVersion{
			VersionID:     v.ID,
			DocumentID:    v.DocumentID,
			UserID:        v.UserID,
			Revision:      v.Revision,
			DocRevision:   doc.Revision,
			VersionCtime:  v.Ctime,
			DocumentMtime: doc.Mtime,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionID < out[j].VersionID })
	return out, nil
}

// VersionCount counts every stored version regardless of owner.
func (m *MemStore) VersionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.versions)
}

// PutDocument stores doc as-is, bypassing the service layer.
func (m *MemStore) PutDocument(doc model.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
}

var _ repo.Gateway = (*MemStore)(nil)

// MemUsers implements the user store used by the auth service.
type MemUsers struct {
	mu    sync.Mutex
	users map[string]model.User
}

func NewMemUsers() *MemUsers {
	return &MemUsers{users: make(map[string]model.User)}
}

func (m *MemUsers) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return appErr.ErrConflict
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (m *MemUsers) GetByID(ctx context.Context, userID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return &u, nil
}
