package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docscan/internal/model"
	appErr "github.com/xxxsen/docscan/internal/pkg/errors"
	"github.com/xxxsen/docscan/internal/repo"
	"github.com/xxxsen/docscan/internal/session"
)

type ListResult struct {
	Documents  []model.Document `json:"documents"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
}

// ListParamsPatch carries the fields a caller wants to change; nil fields
// keep their current value.
type ListParamsPatch struct {
	Page      *int
	PerPage   *int
	Search    *string
	SortBy    *string
	SortOrder *string
}

type ListController struct {
	store          repo.Gateway
	defaultPerPage int
}

func NewListController(store repo.Gateway, defaultPerPage int) *ListController {
	if defaultPerPage <= 0 || defaultPerPage > model.MaxPerPage {
		defaultPerPage = model.DefaultPerPage
	}
	return &ListController{store: store, defaultPerPage: defaultPerPage}
}

func (c *ListController) normalize(p model.DocumentListParams) (model.DocumentListParams, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > model.MaxPage {
		p.Page = model.MaxPage
	}
	if p.PerPage <= 0 {
		p.PerPage = c.defaultPerPage
	}
	if p.PerPage > model.MaxPerPage {
		p.PerPage = model.MaxPerPage
	}
	p.Search = strings.TrimSpace(p.Search)
	p.SortBy = strings.ToLower(strings.TrimSpace(p.SortBy))
	if p.SortBy == "" {
		p.SortBy = model.SortByUpdatedAt
	}
	if !model.IsValidSortBy(p.SortBy) {
		return p, fmt.Errorf("unsupported sort_by %q: %w", p.SortBy, appErr.ErrInvalid)
	}
	p.SortOrder = strings.ToLower(strings.TrimSpace(p.SortOrder))
	if p.SortOrder == "" {
		p.SortOrder = model.SortOrderDesc
	}
	if !model.IsValidSortOrder(p.SortOrder) {
		return p, fmt.Errorf("unsupported sort_order %q: %w", p.SortOrder, appErr.ErrInvalid)
	}
	return p, nil
}

// Query fetches one page of the user's documents. A page past the end is
// clamped to the last page.
func (c *ListController) Query(ctx context.Context, userID string, params model.DocumentListParams) (*ListResult, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	p, err := c.normalize(params)
	if err != nil {
		return nil, err
	}
	docs, total, err := c.fetch(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	totalPages := model.TotalPages(total, p.PerPage)
	if p.Page > totalPages {
		p.Page = totalPages
		docs, total, err = c.fetch(ctx, userID, p)
		if err != nil {
			return nil, err
		}
		totalPages = model.TotalPages(total, p.PerPage)
	}
	return &ListResult{
		Documents:  docs,
		Total:      total,
		TotalPages: totalPages,
		Page:       p.Page,
		PerPage:    p.PerPage,
	}, nil
}

func (c *ListController) fetch(ctx context.Context, userID string, p model.DocumentListParams) ([]model.Document, int, error) {
	return c.store.QueryDocuments(ctx, userID, repo.DocumentQuery{
		Search:    p.Search,
		SortBy:    p.SortBy,
		SortOrder: p.SortOrder,
		Offset:    uint64((p.Page - 1) * p.PerPage),
		Limit:     uint64(p.PerPage),
	})
}

// Update merges patch into the session parameters and re-queries. Changing
// the filter, sort or page size returns to the first page.
func (c *ListController) Update(ctx context.Context, sess *session.Session, patch ListParamsPatch) (*ListResult, error) {
	p := sess.Params()
	reset := false
	if patch.Search != nil && *patch.Search != p.Search {
		p.Search = *patch.Search
		reset = true
	}
	if patch.SortBy != nil && *patch.SortBy != p.SortBy {
		p.SortBy = *patch.SortBy
		reset = true
	}
	if patch.SortOrder != nil && *patch.SortOrder != p.SortOrder {
		p.SortOrder = *patch.SortOrder
		reset = true
	}
	if patch.PerPage != nil && *patch.PerPage != p.PerPage {
		p.PerPage = *patch.PerPage
		reset = true
	}
	if reset {
		p.Page = 1
	}
	if patch.Page != nil {
		p.Page = *patch.Page
	}
	normalized, err := c.normalize(p)
	if err != nil {
		return nil, err
	}
	sess.SetParams(normalized)
	return c.Refresh(ctx, sess)
}

// Refresh re-runs the session query. On failure the cached list is emptied
// rather than left stale.
func (c *ListController) Refresh(ctx context.Context, sess *session.Session) (*ListResult, error) {
	sess.SetLoading()
	res, err := c.Query(ctx, sess.UserID, sess.Params())
	if err != nil {
		logutil.GetLogger(ctx).Error("refresh document list failed",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		sess.SetList(session.ListState{TotalPages: 1, Error: err.Error()})
		return nil, err
	}
	p := sess.Params()
	p.Page = res.Page
	p.PerPage = res.PerPage
	sess.SetParams(p)
	sess.SetList(session.ListState{
		Documents:  res.Documents,
		Total:      res.Total,
		TotalPages: res.TotalPages,
	})
	return res, nil
}
