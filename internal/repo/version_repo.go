package repo

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/didi/gendry/builder"

	"github.com/xxxsen/docscan/internal/model"
	"github.com/xxxsen/docscan/internal/pkg/dbutil"
	appErr "github.com/xxxsen/docscan/internal/pkg/errors"
)

var versionColumns = []string{"id", "document_id", "user_id", "revision", "content", "metadata", "ctime"}

type VersionRepo struct {
	db executor
}

func NewVersionRepo(db executor) *VersionRepo {
	return &VersionRepo{db: db}
}

func (r *VersionRepo) Create(ctx context.Context, version *model.DocumentVersion) error {
	data := map[string]interface{}{
		"id":          version.ID,
		"document_id": version.DocumentID,
		"user_id":     version.UserID,
		"revision":    version.Revision,
		"content":     version.Content,
		"metadata":    version.Metadata,
		"ctime":       version.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("document_versions", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// List returns every snapshot of a document, most recent first.
func (r *VersionRepo) List(ctx context.Context, userID, docID string) ([]model.DocumentVersion, error) {
	where := map[string]interface{}{
		"user_id":     userID,
		"document_id": docID,
		"_orderby":    "revision desc, ctime desc, id desc",
	}
	return r.list(ctx, where)
}

func (r *VersionRepo) ListByUser(ctx context.Context, userID string) ([]model.DocumentVersion, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "document_id asc, revision desc, ctime desc",
	}
	return r.list(ctx, where)
}

func (r *VersionRepo) list(ctx context.Context, where map[string]interface{}) ([]model.DocumentVersion, error) {
	sqlStr, args, err := builder.BuildSelect("document_versions", where, versionColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	versions := make([]model.DocumentVersion, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}

func (r *VersionRepo) GetByID(ctx context.Context, userID, versionID string) (*model.DocumentVersion, error) {
	where := map[string]interface{}{
		"id":      versionID,
		"user_id": userID,
	}
	sqlStr, args, err := builder.BuildSelect("document_versions", where, versionColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	return scanVersion(rows)
}

func (r *VersionRepo) Count(ctx context.Context, userID, docID string) (int, error) {
	sqlStr, args, err := psql.Select("COUNT(1)").
		From("document_versions").
		Where(sq.Eq{"user_id": userID, "document_id": docID}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.db.QueryRowxContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *VersionRepo) DeleteByDocument(ctx context.Context, userID, docID string) error {
	where := map[string]interface{}{
		"user_id":     userID,
		"document_id": docID,
	}
	sqlStr, args, err := builder.BuildDelete("document_versions", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// rankedVersions numbers the snapshots taken from the same document
// revision, newest first. Only the newest one can belong to a content change
// that landed.
const rankedVersions = `(SELECT id, document_id, user_id, revision, ctime,
ROW_NUMBER() OVER (PARTITION BY document_id, revision ORDER BY ctime DESC, id DESC) AS rn
FROM document_versions) v`

// ListOrphans finds snapshots with no matching content change: those whose
// document never advanced past the snapshotted revision, and the older
// duplicates left at a revision a later save moved past. An empty userID
// scans every user.
func (r *VersionRepo) ListOrphans(ctx context.Context, userID string) ([]model.OrphanVersion, error) {
	stmt := psql.Select(
		"v.id", "v.document_id", "v.user_id", "v.revision", "d.revision", "v.ctime", "d.mtime",
	).
		From(rankedVersions).
		Join("documents d ON d.id = v.document_id AND d.user_id = v.user_id").
		Where("(v.revision >= d.revision OR v.rn > 1)").
		OrderBy("v.ctime ASC", "v.id ASC")
	if userID != "" {
		stmt = stmt.Where(sq.Eq{"v.user_id": userID})
	}
	sqlStr, args, err := stmt.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make([]model.OrphanVersion, 0)
	for rows.Next() {
		var o model.OrphanVersion
		if err := rows.Scan(&o.VersionID, &o.DocumentID, &o.UserID, &o.Revision, &o.DocRevision, &o.VersionCtime, &o.DocumentMtime); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanVersion(row rowScanner) (*model.DocumentVersion, error) {
	var v model.DocumentVersion
	if err := row.Scan(&v.ID, &v.DocumentID, &v.UserID, &v.Revision, &v.Content, &v.Metadata, &v.Ctime); err != nil {
		return nil, err
	}
	return &v, nil
}
