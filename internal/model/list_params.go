package model

const (
	SortByTitle     = "title"
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"

	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"

	DefaultPerPage = 10
	MaxPerPage     = 100
	// MaxPage keeps (page-1)*per_page well inside a postgres bigint offset.
	MaxPage = 1<<31 - 1
)

type DocumentListParams struct {
	Page      int    `json:"page"`
	PerPage   int    `json:"per_page"`
	Search    string `json:"search,omitempty"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
}

func DefaultListParams() DocumentListParams {
	return DocumentListParams{
		Page:      1,
		PerPage:   DefaultPerPage,
		SortBy:    SortByUpdatedAt,
		SortOrder: SortOrderDesc,
	}
}

func IsValidSortBy(v string) bool {
	switch v {
	case SortByTitle, SortByCreatedAt, SortByUpdatedAt:
		return true
	}
	return false
}

func IsValidSortOrder(v string) bool {
	return v == SortOrderAsc || v == SortOrderDesc
}

// TotalPages is ceil(total/perPage) with a floor of one page.
func TotalPages(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}
