package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docscan/internal/model"
	appErr "github.com/xxxsen/docscan/internal/pkg/errors"
	"github.com/xxxsen/docscan/internal/testutil"
)

func newDoc(t *testing.T, store *testutil.MemStore, userID, title, content string) *model.Document {
	t.Helper()
	doc, err := NewDocumentService(store, true).Create(context.Background(), userID, DocumentCreateInput{Title: title, Content: content})
	require.NoError(t, err)
	return doc
}

func TestSaveSnapshotsPreviousContent(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	svc := NewVersionService(store, true)
	doc := newDoc(t, store, "u1", "note", "Hello")

	updated, err := svc.Save(ctx, "u1", doc.ID, "World", nil)
	require.NoError(t, err)
	require.Equal(t, "World", updated.Content)
	require.Equal(t, int64(2), updated.Revision)

	versions, err := svc.ListVersions(ctx, "u1", doc.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.Equal(t, "Hello", versions[0].Content)
	require.Equal(t, doc.ID, versions[0].DocumentID)
	require.Equal(t, sourceManual, versions[0].Metadata.Source)
}

func TestSaveAddsOneVersionPerSave(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	svc := NewVersionService(store, false)
	doc := newDoc(t, store, "u1", "note", "v0")

	contents := []string{"v1", "v2", "v3", "v4", "v5"}
	for _, c := range contents {
		_, err := svc.Save(ctx, "u1", doc.ID, c, nil)
		require.NoError(t, err)
	}
	versions, err := svc.ListVersions(ctx, "u1", doc.ID)
	require.NoError(t, err)
	require.Len(t, versions, len(contents))
	require.Equal(t, "v4", versions[0].Content)
	require.Equal(t, "v0", versions[len(versions)-1].Content)
}

func TestSaveSnapshotFailureKeepsContent(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		ctx := context.Background()
		store := testutil.NewMemStore()
		svc := NewVersionService(store, atomic)
		doc := newDoc(t, store, "u1", "note", "Hello")

		store.FailCreateVersion = errors.New("insert failed")
		_, err := svc.Save(ctx, "u1", doc.ID, "World", nil)
		require.Error(t, err)

		got, err := store.GetDocument(ctx, "u1", doc.ID)
		require.NoError(t, err)
		require.Equal(t, "Hello", got.Content)
		require.Equal(t, 0, store.VersionCount())
	}
}

func TestSaveAtomicRollsBackSnapshot(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	svc := NewVersionService(store, true)
	doc := newDoc(t, store, "u1", "note", "Hello")

	store.FailUpdateContent = errors.New("update failed")
	_, err := svc.Save(ctx, "u1", doc.ID, "World", nil)
	require.Error(t, err)
	require.Equal(t, 0, store.VersionCount())

	orphans, err := svc.AuditOrphans(ctx, "")
	require.NoError(t, err)
	require.Empty(t, orphans)
}

func TestSaveSequentialLeavesDetectableOrphan(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	svc := NewVersionService(store, false)
	doc := newDoc(t, store, "u1", "note", "Hello")

	_, err := svc.Save(ctx, "u1", doc.ID, "World", nil)
	require.NoError(t, err)
	orphans, err := svc.AuditOrphans(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, orphans)

	store.FailUpdateContent = errors.New("update failed")
	_, err = svc.Save(ctx, "u1", doc.ID, "Lost", nil)
	require.Error(t, err)
	require.Equal(t, 2, store.VersionCount())

	orphans, err = svc.AuditOrphans(ctx, "")
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	require.Equal(t, doc.ID, orphans[0].DocumentID)
	require.Equal(t, int64(2), orphans[0].Revision)

	orphans, err = svc.AuditOrphans(ctx, "u2")
	require.NoError(t, err)
	require.Empty(t, orphans)
}

func TestOrphanSurvivesLaterSave(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	svc := NewVersionService(store, false)
	doc := newDoc(t, store, "u1", "note", "Hello")

	store.FailUpdateContent = errors.New("update failed")
	_, err := svc.Save(ctx, "u1", doc.ID, "Lost", nil)
	require.Error(t, err)
	store.FailUpdateContent = nil

	saved, err := svc.Save(ctx, "u1", doc.ID, "World", nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), saved.Revision)
	require.Equal(t, 2, store.VersionCount())

	// two snapshots of revision 1 exist for a single content change
	orphans, err := svc.AuditOrphans(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	require.Equal(t, int64(1), orphans[0].Revision)
	require.Equal(t, int64(2), orphans[0].DocRevision)

	_, err = svc.Save(ctx, "u1", doc.ID, "Again", nil)
	require.NoError(t, err)
	orphans, err = svc.AuditOrphans(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orphans, 1)
}

func TestSaveStaleRevisionConflicts(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	svc := NewVersionService(store, true)
	doc := newDoc(t, store, "u1", "note", "Hello")

	first := doc.Revision
	_, err := svc.Save(ctx, "u1", doc.ID, "A", &first)
	require.NoError(t, err)
	_, err = svc.Save(ctx, "u1", doc.ID, "B", &first)
	require.ErrorIs(t, err, appErr.ErrConflict)

	got, err := store.GetDocument(ctx, "u1", doc.ID)
	require.NoError(t, err)
	require.Equal(t, "A", got.Content)
	require.Equal(t, 1, store.VersionCount())
}

func TestSaveRequiresOwner(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	svc := NewVersionService(store, true)
	doc := newDoc(t, store, "u1", "note", "Hello")

	_, err := svc.Save(ctx, "", doc.ID, "x", nil)
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	_, err = svc.Save(ctx, "u2", doc.ID, "x", nil)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = svc.ListVersions(ctx, "u2", doc.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.Equal(t, 0, store.VersionCount())
}

func TestRestoreCreatesNoVersion(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	svc := NewVersionService(store, true)
	doc := newDoc(t, store, "u1", "draft", "Draft v1")

	_, err := svc.Save(ctx, "u1", doc.ID, "Draft v2", nil)
	require.NoError(t, err)
	_, err = svc.Save(ctx, "u1", doc.ID, "Draft v3", nil)
	require.NoError(t, err)

	versions, err := svc.ListVersions(ctx, "u1", doc.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	var v1 model.DocumentVersion
	for _, v := range versions {
		if v.Content == "Draft v1" {
			v1 = v
		}
	}
	require.NotEmpty(t, v1.ID)

	restored, err := svc.Restore(ctx, "u1", v1.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "Draft v1", restored.Content)
	require.Equal(t, 2, store.VersionCount())

	orphans, err := svc.AuditOrphans(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, orphans)
}

func TestRestoreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	svc := NewVersionService(store, true)
	doc := newDoc(t, store, "u1", "note", "Hello")
	_, err := svc.Save(ctx, "u1", doc.ID, "World", nil)
	require.NoError(t, err)
	versions, err := svc.ListVersions(ctx, "u1", doc.ID)
	require.NoError(t, err)

	_, err = svc.Restore(ctx, "u2", versions[0].ID, nil)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = svc.GetVersion(ctx, "u2", versions[0].ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	stale := int64(1)
	_, err = svc.Restore(ctx, "u1", versions[0].ID, &stale)
	require.ErrorIs(t, err, appErr.ErrConflict)
}

func TestDeleteCascadesVersions(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	versions := NewVersionService(store, true)
	doc := newDoc(t, store, "u1", "note", "Hello")
	_, err := versions.Save(ctx, "u1", doc.ID, "World", nil)
	require.NoError(t, err)

	require.ErrorIs(t, NewDocumentService(store, true).Delete(ctx, "u2", doc.ID), appErr.ErrNotFound)
	require.NoError(t, NewDocumentService(store, true).Delete(ctx, "u1", doc.ID))
	require.Equal(t, 0, store.VersionCount())
}

func TestDeleteWithoutCascadeKeepsVersions(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	versions := NewVersionService(store, true)
	doc := newDoc(t, store, "u1", "note", "Hello")
	_, err := versions.Save(ctx, "u1", doc.ID, "World", nil)
	require.NoError(t, err)

	require.NoError(t, NewDocumentService(store, false).Delete(ctx, "u1", doc.ID))
	require.Equal(t, 1, store.VersionCount())
}

func TestCreateValidatesTitle(t *testing.T) {
	svc := NewDocumentService(testutil.NewMemStore(), true)
	_, err := svc.Create(context.Background(), "u1", DocumentCreateInput{Title: "  "})
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = svc.Create(context.Background(), "", DocumentCreateInput{Title: "x"})
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
}
