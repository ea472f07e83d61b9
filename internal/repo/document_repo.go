package repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/didi/gendry/builder"

	"github.com/xxxsen/docscan/internal/model"
	"github.com/xxxsen/docscan/internal/pkg/dbutil"
	appErr "github.com/xxxsen/docscan/internal/pkg/errors"
)

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	documentColumns = []string{"id", "user_id", "title", "content", "metadata", "revision", "ctime", "mtime"}

	sortColumns = map[string]string{
		model.SortByTitle:     "title",
		model.SortByCreatedAt: "ctime",
		model.SortByUpdatedAt: "mtime",
	}
)

// DocumentQuery selects one window of a user's documents.
type DocumentQuery struct {
	Search    string
	SortBy    string
	SortOrder string
	Offset    uint64
	Limit     uint64
}

type DocumentRepo struct {
	db executor
}

func NewDocumentRepo(db executor) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":       doc.ID,
		"user_id":  doc.UserID,
		"title":    doc.Title,
		"content":  doc.Content,
		"metadata": doc.Metadata,
		"revision": doc.Revision,
		"ctime":    doc.Ctime,
		"mtime":    doc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, userID, docID string) (*model.Document, error) {
	return r.get(ctx, userID, docID, false)
}

// GetByIDForUpdate locks the row until the surrounding transaction ends.
func (r *DocumentRepo) GetByIDForUpdate(ctx context.Context, userID, docID string) (*model.Document, error) {
	return r.get(ctx, userID, docID, true)
}

func (r *DocumentRepo) get(ctx context.Context, userID, docID string, lock bool) (*model.Document, error) {
	where := map[string]interface{}{
		"id":      docID,
		"user_id": userID,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentColumns)
	if err != nil {
		return nil, err
	}
	if lock {
		sqlStr += " FOR UPDATE"
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
	return scanDocument(rows)
}

// UpdateContent replaces the content only when the stored revision still
// equals baseRevision, bumping the revision by one.
func (r *DocumentRepo) UpdateContent(ctx context.Context, userID, docID, content string, baseRevision, mtime int64) (*model.Document, error) {
	where := map[string]interface{}{
		"id":       docID,
		"user_id":  userID,
		"revision": baseRevision,
	}
	update := map[string]interface{}{
		"content":  content,
		"revision": baseRevision + 1,
		"mtime":    mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, userID, docID); err != nil {
			return nil, err
		}
		return nil, appErr.ErrConflict
	}
	return r.GetByID(ctx, userID, docID)
}

func (r *DocumentRepo) Delete(ctx context.Context, userID, docID string) error {
	where := map[string]interface{}{
		"id":      docID,
		"user_id": userID,
	}
	sqlStr, args, err := builder.BuildDelete("documents", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) ListByUser(ctx context.Context, userID string) ([]model.Document, error) {
	docs, _, err := r.Query(ctx, userID, DocumentQuery{SortBy: model.SortByCreatedAt, SortOrder: model.SortOrderAsc})
	return docs, err
}

// Query returns one window of the user's documents plus the exact number of
// rows matching the filter. Ties on the sort key are broken by id so that
// consecutive pages never overlap.
func (r *DocumentRepo) Query(ctx context.Context, userID string, q DocumentQuery) ([]model.Document, int, error) {
	cond := sq.And{sq.Eq{"user_id": userID}}
	if q.Search != "" {
		pattern := dbutil.ContainsPattern(q.Search)
		cond = append(cond, sq.Or{sq.ILike{"title": pattern}, sq.ILike{"content": pattern}})
	}

	countSQL, countArgs, err := psql.Select("COUNT(1)").From("documents").Where(cond).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRowxContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = sortColumns[model.SortByUpdatedAt]
	}
	direction := "DESC"
	if q.SortOrder == model.SortOrderAsc {
		direction = "ASC"
	}
	stmt := psql.Select(documentColumns...).
		From("documents").
		Where(cond).
		OrderBy(column+" "+direction, "id "+direction)
	if q.Limit > 0 {
		stmt = stmt.Limit(q.Limit).Offset(q.Offset)
	}
	sqlStr, args, err := stmt.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()
	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, *doc)
	}
	return docs, total, rows.Err()
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var doc model.Document
	if err := row.Scan(&doc.ID, &doc.UserID, &doc.Title, &doc.Content, &doc.Metadata, &doc.Revision, &doc.Ctime, &doc.Mtime); err != nil {
		return nil, err
	}
	return &doc, nil
}
