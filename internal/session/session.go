// Package session keeps the per-login workspace state: current list
// parameters, the last list result, the selected document and the operation
// tokens used to drop out-of-order responses.
package session

import (
	"sync"

	"github.com/xxxsen/docscan/internal/model"
)

// ListState is the cached outcome of the last list query.
type ListState struct {
	Documents  []model.Document `json:"documents"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
	Loading    bool             `json:"loading"`
	Error      string           `json:"error,omitempty"`
}

type Session struct {
	ID     string
	UserID string

	mu       sync.Mutex
	params   model.DocumentListParams
	list     ListState
	selected *model.Document
	seq      uint64
	tokens   map[string]uint64
}

func newSession(id, userID string, params model.DocumentListParams) *Session {
	return &Session{
		ID:     id,
		UserID: userID,
		params: params,
		list:   ListState{Documents: []model.Document{}, TotalPages: 1},
		tokens: make(map[string]uint64),
	}
}

func (s *Session) Params() model.DocumentListParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *Session) SetParams(p model.DocumentListParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = p
}

func (s *Session) List() ListState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.list
	out.Documents = append([]model.Document(nil), s.list.Documents...)
	return out
}

func (s *Session) SetLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.Loading = true
}

func (s *Session) SetList(st ListState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Documents == nil {
		st.Documents = []model.Document{}
	}
	s.list = st
}

func (s *Session) Selected() *model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	doc := *s.selected
	return &doc
}

// ClearSelected drops the selection if it points at docID, or any selection
// when docID is empty.
func (s *Session) ClearSelected(docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if docID != "" {
		delete(s.tokens, docID)
	}
	if s.selected != nil && (docID == "" || s.selected.ID == docID) {
		s.selected = nil
	}
}

// Begin issues a token for an operation on docID. Only the response carrying
// the latest token for that document is applied by Accept.
func (s *Session) Begin(docID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.tokens[docID] = s.seq
	return s.seq
}

// Accept stores doc as the selected document if token is still current. It
// reports whether the response was applied.
func (s *Session) Accept(docID string, token uint64, doc *model.Document) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens[docID] != token {
		return false
	}
	if doc == nil {
		s.selected = nil
		return true
	}
	cp := *doc
	s.selected = &cp
	return true
}

// View is a json friendly copy of the session.
type View struct {
	ID       string                   `json:"id"`
	Params   model.DocumentListParams `json:"params"`
	List     ListState                `json:"list"`
	Selected *model.Document          `json:"selected,omitempty"`
}

func (s *Session) View() View {
	return View{ID: s.ID, Params: s.Params(), List: s.List(), Selected: s.Selected()}
}
