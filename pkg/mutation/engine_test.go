package mutation_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/api"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/api/apitest"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/mutation"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type board struct {
	srv   *apitest.Server
	owner model.User
	board model.Board
	todo  model.List
	done  model.List
	// cards of todo, in order: X, Y, Z.
	cards []model.Card
}

func newBoard(t *testing.T) *board {
	t.Helper()

	srv := apitest.NewServer(t)
	owner, _ := srv.AddUser("Owner", "owner@example.com")
	b := srv.AddBoard(owner.ID, "Roadmap")
	todo := srv.AddList(b.ID, "todo")
	done := srv.AddList(b.ID, "done")

	cards := []model.Card{srv.AddCard(todo.ID, "X"), srv.AddCard(todo.ID, "Y"), srv.AddCard(todo.ID, "Z")}
	srv.AddCard(done.ID, "W")

	return &board{srv: srv, owner: owner, board: b, todo: todo, done: done, cards: cards}
}

// engine signs in as user and loads the board into a fresh cache.
func (b *board) engine(t *testing.T, user model.User, opts ...mutation.Option) (*mutation.Engine, *cache.Cache) {
	t.Helper()

	ctx := context.Background()
	client := api.NewClient(b.srv.APIURL(), api.WithToken(apitest.Token(user.ID, time.Hour)))

	c, err := cache.New(ctx, client, cache.WithCopier(model.CloneValue))
	require.NoError(t, err)
	t.Cleanup(c.Close)

	for _, key := range []cache.Key{
		cache.Boards(),
		cache.Lists(b.board.ID),
		cache.Labels(b.board.ID),
		cache.Members(b.board.ID),
		cache.Cards(b.todo.ID),
		cache.Cards(b.done.ID),
	} {
		_, err := c.Fetch(ctx, key)
		require.NoError(t, err)
	}

	e := mutation.New(c, client, user, opts...)
	t.Cleanup(e.Wait)

	return e, c
}

func titles(t *testing.T, c *cache.Cache, listID string) []string {
	t.Helper()

	cards, ok := c.Snapshot(cache.Cards(listID)).Value.([]model.Card)
	require.True(t, ok)

	out := make([]string, len(cards))
	for i, card := range cards {
		out[i] = card.Title
		assert.Equal(t, i, card.Position, "position of %s", card.Title)
	}

	return out
}

func serverTitles(srv *apitest.Server, listID string) []string {
	var out []string
	for _, card := range srv.Cards(listID) {
		out = append(out, card.Title)
	}

	return out
}

func TestMoveCardRollsBackOnServerError(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	e, c := b.engine(t, b.owner)
	z := b.cards[2]

	b.srv.Fail(http.MethodPut, "/cards/"+z.ID+"/move", http.StatusInternalServerError, 1)
	release := b.srv.HoldMutations()

	m, err := e.MoveCard(b.board.ID, z.ID, b.todo.ID, b.todo.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(mutation.Pending, m.State())
	assert.Equal([]string{"Z", "X", "Y"}, titles(t, c, b.todo.ID))
	assert.Equal(1, e.Pending(cache.Cards(b.todo.ID)))

	release()

	err = m.Wait(context.Background())
	require.Error(t, err)
	assert.True(api.IsKind(err, api.KindServer))
	assert.Equal(mutation.RolledBack, m.State())
	assert.Equal([]string{"X", "Y", "Z"}, titles(t, c, b.todo.ID))
	assert.Equal(0, e.Pending(cache.Cards(b.todo.ID)))
}

func TestMoveCardCommits(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	e, c := b.engine(t, b.owner)

	m, err := e.MoveCard(b.board.ID, b.cards[2].ID, b.todo.ID, b.todo.ID, 0)
	require.NoError(t, err)
	require.NoError(t, m.Wait(context.Background()))

	assert.Equal(mutation.Committed, m.State())
	assert.Equal([]string{"Z", "X", "Y"}, serverTitles(b.srv, b.todo.ID))
	assert.True(c.IsStale(cache.Cards(b.todo.ID)))

	_, err = c.Fetch(context.Background(), cache.Cards(b.todo.ID))
	require.NoError(t, err)
	assert.Equal([]string{"Z", "X", "Y"}, titles(t, c, b.todo.ID))
}

func TestMoveCardAcrossListsConservesCards(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	e, c := b.engine(t, b.owner)
	x := b.cards[0]

	release := b.srv.HoldMutations()

	m, err := e.MoveCard(b.board.ID, x.ID, b.todo.ID, b.done.ID, 0)
	require.NoError(t, err)

	assert.Equal([]string{"Y", "Z"}, titles(t, c, b.todo.ID))
	assert.Equal([]string{"X", "W"}, titles(t, c, b.done.ID))

	moved, _ := c.Snapshot(cache.Cards(b.done.ID)).Value.([]model.Card)
	assert.Equal(b.done.ID, moved[0].ListID)

	release()
	require.NoError(t, m.Wait(context.Background()))

	assert.Equal([]string{"Y", "Z"}, serverTitles(b.srv, b.todo.ID))
	assert.Equal([]string{"X", "W"}, serverTitles(b.srv, b.done.ID))
}

func TestMoveCardToUncachedList(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	later := b.srv.AddList(b.board.ID, "later")
	e, c := b.engine(t, b.owner)
	x := b.cards[0]

	release := b.srv.HoldMutations()

	m, err := e.MoveCard(b.board.ID, x.ID, b.todo.ID, later.ID, 3)
	require.NoError(t, err)

	// a one-card collection would pass for the whole list
	assert.Equal([]string{"Y", "Z"}, titles(t, c, b.todo.ID))
	assert.False(c.Snapshot(cache.Cards(later.ID)).Present)

	release()
	require.NoError(t, m.Wait(context.Background()))

	assert.False(c.Snapshot(cache.Cards(later.ID)).Present)
	assert.Equal([]string{"X"}, serverTitles(b.srv, later.ID))

	_, err = c.Fetch(context.Background(), cache.Cards(later.ID))
	require.NoError(t, err)
	assert.Equal([]string{"X"}, titles(t, c, later.ID))
}

func TestMoveOntoSameSlotIsNoop(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	e, c := b.engine(t, b.owner)
	version := c.Version(cache.Cards(b.todo.ID))

	m, err := e.MoveCard(b.board.ID, b.cards[1].ID, b.todo.ID, b.todo.ID, 1)
	assert.NoError(err)
	assert.Nil(m)
	assert.Equal(0, b.srv.Mutations())
	assert.Equal(version, c.Version(cache.Cards(b.todo.ID)))
}

func TestStackedFailuresRestoreOriginal(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	e, c := b.engine(t, b.owner)
	x, z := b.cards[0], b.cards[2]

	b.srv.Fail(http.MethodPut, "/cards/"+z.ID+"/move", http.StatusInternalServerError, 1)
	b.srv.Fail(http.MethodPut, "/cards/"+x.ID+"/move", http.StatusInternalServerError, 1)
	release := b.srv.HoldMutations()

	first, err := e.MoveCard(b.board.ID, z.ID, b.todo.ID, b.todo.ID, 0)
	require.NoError(t, err)

	second, err := e.MoveCard(b.board.ID, x.ID, b.todo.ID, b.todo.ID, 2)
	require.NoError(t, err)

	assert.Equal([]string{"Z", "Y", "X"}, titles(t, c, b.todo.ID))
	assert.Equal(2, e.Pending(cache.Cards(b.todo.ID)))

	release()

	assert.Error(first.Wait(context.Background()))
	assert.Error(second.Wait(context.Background()))
	assert.Equal([]string{"X", "Y", "Z"}, titles(t, c, b.todo.ID))
}

func TestStackedMutationKeepsSurvivorWrite(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	e, c := b.engine(t, b.owner)
	x := b.cards[0]

	title := "renamed"

	b.srv.Fail(http.MethodPut, "/cards/"+x.ID+"/move", http.StatusInternalServerError, 1)
	release := b.srv.HoldMutations()

	move, err := e.MoveCard(b.board.ID, x.ID, b.todo.ID, b.todo.ID, 2)
	require.NoError(t, err)

	rename, err := e.UpdateCard(b.board.ID, b.todo.ID, x.ID, api.CardPatch{Title: &title})
	require.NoError(t, err)

	assert.Equal([]string{"Y", "Z", "renamed"}, titles(t, c, b.todo.ID))

	release()

	assert.Error(move.Wait(context.Background()))
	assert.NoError(rename.Wait(context.Background()))

	_, err = c.Fetch(context.Background(), cache.Cards(b.todo.ID))
	require.NoError(t, err)
	assert.Equal([]string{"renamed", "Y", "Z"}, titles(t, c, b.todo.ID))
}

func TestCreateCommentReplacesPlaceholder(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	e, c := b.engine(t, b.owner)
	card := b.cards[0]

	_, err := c.Fetch(context.Background(), cache.Comments(card.ID))
	require.NoError(t, err)

	release := b.srv.HoldMutations()

	m, err := e.CreateComment(b.board.ID, card.ID, "hi")
	require.NoError(t, err)

	pending, _ := c.Snapshot(cache.Comments(card.ID)).Value.([]model.Comment)
	require.Len(t, pending, 1)
	assert.Equal(m.TempID(), pending[0].ID)
	assert.True(model.IsTempID(pending[0].ID))
	assert.Equal(b.owner.ID, pending[0].User.ID)

	release()
	require.NoError(t, m.Wait(context.Background()))

	confirmed, _ := c.Snapshot(cache.Comments(card.ID)).Value.([]model.Comment)
	require.Len(t, confirmed, 1)
	assert.Equal("hi", confirmed[0].Content)
	assert.False(model.IsTempID(confirmed[0].ID))
	assert.Equal(confirmed[0].ID, e.RealID(m.TempID()))
	assert.Len(b.srv.Comments(card.ID), 1)
}

func TestViewerIsDeniedBeforeAnyWrite(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	viewer, _ := b.srv.AddUser("Viewer", "viewer@example.com")
	b.srv.AddMember(b.board.ID, viewer.ID, model.RoleViewer)

	e, c := b.engine(t, viewer)
	version := c.Version(cache.Cards(b.todo.ID))

	m, err := e.MoveCard(b.board.ID, b.cards[2].ID, b.todo.ID, b.todo.ID, 0)
	assert.ErrorIs(err, mutation.ErrForbidden)
	assert.Nil(m)

	_, err = e.CreateList(b.board.ID, "later")
	assert.ErrorIs(err, mutation.ErrForbidden)

	// Viewers may still comment.
	comment, err := e.CreateComment(b.board.ID, b.cards[0].ID, "looks good")
	require.NoError(t, err)
	require.NoError(t, comment.Wait(context.Background()))

	assert.Equal(1, b.srv.Mutations())
	assert.Equal(version, c.Version(cache.Cards(b.todo.ID)))
	assert.Equal([]string{"X", "Y", "Z"}, titles(t, c, b.todo.ID))
}

func TestValidationFailsBeforeAnyWrite(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	e, _ := b.engine(t, b.owner)

	m, err := e.CreateList(b.board.ID, "  ")
	assert.Nil(m)

	fields, ok := validation.Fields(err)
	require.True(t, ok, "got %v", err)
	assert.Equal("List title is required", fields["title"])
	assert.Equal(0, b.srv.Mutations())
}

func TestPlaceholderIsNotSyncedUntilConfirmed(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	e, c := b.engine(t, b.owner)

	release := b.srv.HoldMutations()

	created, err := e.CreateCard(b.board.ID, b.todo.ID, api.CardInput{Title: "new"})
	require.NoError(t, err)
	assert.Equal([]string{"X", "Y", "Z", "new"}, titles(t, c, b.todo.ID))

	title := "newer"

	_, err = e.UpdateCard(b.board.ID, b.todo.ID, created.TempID(), api.CardPatch{Title: &title})
	assert.ErrorIs(err, mutation.ErrNotSynced)

	release()
	require.NoError(t, created.Wait(context.Background()))

	card, ok := created.Result().(model.Card)
	require.True(t, ok)
	assert.Equal(card.ID, e.RealID(created.TempID()))

	update, err := e.UpdateCard(b.board.ID, b.todo.ID, created.TempID(), api.CardPatch{Title: &title})
	require.NoError(t, err)
	require.NoError(t, update.Wait(context.Background()))

	assert.Equal([]string{"X", "Y", "Z", "newer"}, serverTitles(b.srv, b.todo.ID))
}

func TestUnauthorizedCallsHook(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)

	var (
		unauthorized atomic.Int32
		failed       atomic.Int32
	)

	e, c := b.engine(t, b.owner,
		mutation.OnUnauthorized(func(error) { unauthorized.Add(1) }),
		mutation.OnError(func(*mutation.Mutation, error) { failed.Add(1) }),
	)

	x := b.cards[0]
	b.srv.Fail(http.MethodDelete, "/cards/"+x.ID, http.StatusUnauthorized, 1)

	m, err := e.DeleteCard(b.board.ID, b.todo.ID, x.ID)
	require.NoError(t, err)

	err = m.Wait(context.Background())
	assert.True(api.IsKind(err, api.KindUnauthorized))

	e.Wait()
	assert.Equal(int32(1), unauthorized.Load())
	assert.Equal(int32(1), failed.Load())
	assert.Equal([]string{"X", "Y", "Z"}, titles(t, c, b.todo.ID))
}

func TestDeleteListEvictsItsCards(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	e, c := b.engine(t, b.owner)

	m, err := e.DeleteList(b.board.ID, b.todo.ID)
	require.NoError(t, err)

	lists, _ := c.Snapshot(cache.Lists(b.board.ID)).Value.([]model.List)
	require.Len(t, lists, 1)
	assert.Equal(b.done.ID, lists[0].ID)
	assert.Equal(0, lists[0].Position)

	require.NoError(t, m.Wait(context.Background()))
	assert.False(c.Snapshot(cache.Cards(b.todo.ID)).Present)
}

func TestToggleLabel(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	label := b.srv.AddLabel(b.board.ID, "bug", "#eb5a46")
	e, c := b.engine(t, b.owner)
	x := b.cards[0]

	added, err := e.ToggleLabel(b.board.ID, b.todo.ID, x.ID, label.ID)
	require.NoError(t, err)

	card, ok := e.FindCard(b.todo.ID, x.ID)
	require.True(t, ok)
	require.Len(t, card.Labels, 1)
	assert.Equal("bug", card.Labels[0].Label.Name)

	require.NoError(t, added.Wait(context.Background()))

	_, err = c.Fetch(context.Background(), cache.Cards(b.todo.ID))
	require.NoError(t, err)

	removed, err := e.ToggleLabel(b.board.ID, b.todo.ID, x.ID, label.ID)
	require.NoError(t, err)
	require.NoError(t, removed.Wait(context.Background()))

	card, _ = e.FindCard(b.todo.ID, x.ID)
	assert.Empty(card.Labels)
	assert.Empty(b.srv.Cards(b.todo.ID)[0].Labels)
}

func TestMemberManagement(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	editor, _ := b.srv.AddUser("Editor", "editor@example.com")
	e, c := b.engine(t, b.owner)

	invite, err := e.InviteMember(b.board.ID, editor.Email)
	require.NoError(t, err)
	require.NoError(t, invite.Wait(context.Background()))

	v, err := c.Fetch(context.Background(), cache.Members(b.board.ID))
	require.NoError(t, err)

	roster, _ := v.(model.BoardMembers)
	require.Len(t, roster.Members, 1)
	assert.Equal(model.RoleViewer, roster.Members[0].Role)

	promote, err := e.UpdateMemberRole(b.board.ID, editor.ID, model.RoleEditor)
	require.NoError(t, err)

	roster, _ = c.Snapshot(cache.Members(b.board.ID)).Value.(model.BoardMembers)
	assert.Equal(model.RoleEditor, roster.Members[0].Role)
	require.NoError(t, promote.Wait(context.Background()))

	_, err = e.UpdateMemberRole(b.board.ID, b.owner.ID, model.RoleViewer)
	assert.ErrorIs(err, mutation.ErrNotFound)
}
