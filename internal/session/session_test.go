package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docscan/internal/model"
)

func TestAcceptDropsStaleResponse(t *testing.T) {
	m := NewManager(8, time.Minute, 0)
	s := m.Create("u1")

	first := s.Begin("d1")
	second := s.Begin("d1")

	require.True(t, s.Accept("d1", second, &model.Document{ID: "d1", Content: "new"}))
	require.False(t, s.Accept("d1", first, &model.Document{ID: "d1", Content: "old"}))
	require.Equal(t, "new", s.Selected().Content)
}

func TestTokensAreScopedPerDocument(t *testing.T) {
	s := NewManager(8, time.Minute, 0).Create("u1")
	a := s.Begin("a")
	b := s.Begin("b")
	require.True(t, s.Accept("a", a, &model.Document{ID: "a"}))
	require.True(t, s.Accept("b", b, &model.Document{ID: "b"}))
	require.Equal(t, "b", s.Selected().ID)
}

func TestClearSelected(t *testing.T) {
	s := NewManager(8, time.Minute, 0).Create("u1")
	tok := s.Begin("d1")
	s.Accept("d1", tok, &model.Document{ID: "d1"})

	s.ClearSelected("other")
	require.NotNil(t, s.Selected())
	s.ClearSelected("d1")
	require.Nil(t, s.Selected())
	require.False(t, s.Accept("d1", tok, &model.Document{ID: "d1"}))
}

func TestClearSelectedDropsTokenOfUnselectedDocument(t *testing.T) {
	s := NewManager(8, time.Minute, 0).Create("u1")
	tok := s.Begin("gone")
	require.Nil(t, s.Selected())

	s.ClearSelected("gone")
	require.NotContains(t, s.tokens, "gone")
	require.False(t, s.Accept("gone", tok, &model.Document{ID: "gone"}))
	require.Empty(t, s.tokens)
}

func TestManagerScopesSessionsToUser(t *testing.T) {
	m := NewManager(8, time.Minute, 25)
	s := m.Create("u1")
	require.Equal(t, 25, s.Params().PerPage)

	_, ok := m.Get(s.ID, "u2")
	require.False(t, ok)

	got, ok := m.Get(s.ID, "u1")
	require.True(t, ok)
	require.Same(t, s, got)

	foreign := m.Attach(s.ID, "u2")
	require.NotSame(t, s, foreign)
	require.Empty(t, foreign.ID)
}

func TestAttachRecreatesEvictedSession(t *testing.T) {
	m := NewManager(8, time.Minute, 0)
	s := m.Create("u1")
	s.SetParams(model.DocumentListParams{Page: 3, PerPage: 10, SortBy: model.SortByTitle, SortOrder: model.SortOrderAsc})
	m.Remove(s.ID)

	again := m.Attach(s.ID, "u1")
	require.Equal(t, s.ID, again.ID)
	require.Equal(t, model.DefaultListParams(), again.Params())
	require.Equal(t, 1, m.Len())
}

func TestListCopyIsIsolated(t *testing.T) {
	s := NewManager(8, time.Minute, 0).Create("u1")
	s.SetList(ListState{Documents: []model.Document{{ID: "a"}}, Total: 1, TotalPages: 1})
	view := s.List()
	view.Documents[0].ID = "mutated"
	require.Equal(t, "a", s.List().Documents[0].ID)
}
