package mutation_test

import (
	"context"
	"testing"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/mutation"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listTitles(t *testing.T, c *cache.Cache, boardID string) []string {
	t.Helper()

	lists, ok := c.Snapshot(cache.Lists(boardID)).Value.([]model.List)
	require.True(t, ok)

	out := make([]string, len(lists))
	for i, l := range lists {
		out[i] = l.Title
		assert.Equal(t, i, l.Position, "position of %s", l.Title)
	}

	return out
}

func fetchBoards(t *testing.T, c *cache.Cache) []string {
	t.Helper()

	v, err := c.Fetch(context.Background(), cache.Boards())
	require.NoError(t, err)

	boards, _ := v.([]model.Board)

	out := make([]string, len(boards))
	for i, b := range boards {
		out[i] = b.Name
	}

	return out
}

func TestListOperations(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	e, c := b.engine(t, b.owner)
	ctx := context.Background()

	move, err := e.MoveList(b.board.ID, b.todo.ID, 5)
	require.NoError(t, err)
	assert.Equal([]string{"done", "todo"}, listTitles(t, c, b.board.ID))
	require.NoError(t, move.Wait(ctx))

	server := b.srv.Lists(b.board.ID)
	require.Len(t, server, 2)
	assert.Equal(b.todo.ID, server[1].ID)

	rename, err := e.UpdateList(b.board.ID, b.done.ID, "shipped")
	require.NoError(t, err)
	assert.Equal([]string{"shipped", "todo"}, listTitles(t, c, b.board.ID))
	require.NoError(t, rename.Wait(ctx))

	same, err := e.UpdateList(b.board.ID, b.done.ID, "shipped")
	assert.NoError(err)
	assert.Nil(same)

	create, err := e.CreateList(b.board.ID, "later")
	require.NoError(t, err)
	assert.Equal([]string{"shipped", "todo", "later"}, listTitles(t, c, b.board.ID))
	require.NoError(t, create.Wait(ctx))

	realID := e.RealID(create.TempID())
	assert.False(model.IsTempID(realID))

	server = b.srv.Lists(b.board.ID)
	require.Len(t, server, 3)
	assert.Equal("shipped", server[0].Title)
	assert.Equal(realID, server[2].ID)

	_, err = e.CreateList(b.board.ID, "")
	var fields validation.Errors
	assert.ErrorAs(err, &fields)
}

func TestBoardOperations(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	editor, _ := b.srv.AddUser("Editor", "editor@example.com")
	b.srv.AddMember(b.board.ID, editor.ID, model.RoleEditor)
	admin, _ := b.srv.AddUser("Admin", "admin@example.com")
	b.srv.AddMember(b.board.ID, admin.ID, model.RoleAdmin)

	e, c := b.engine(t, b.owner)
	ctx := context.Background()

	create, err := e.CreateBoard("Launch")
	require.NoError(t, err)
	require.NoError(t, create.Wait(ctx))

	launch := e.RealID(create.TempID())
	assert.False(model.IsTempID(launch))
	assert.Equal([]string{"Roadmap", "Launch"}, fetchBoards(t, c))

	rename, err := e.UpdateBoard(launch, "Launch v2")
	require.NoError(t, err)
	require.NoError(t, rename.Wait(ctx))
	assert.Equal([]string{"Roadmap", "Launch v2"}, fetchBoards(t, c))

	ed, _ := b.engine(t, editor)

	_, err = ed.UpdateBoard(b.board.ID, "Mine now")
	assert.ErrorIs(err, mutation.ErrForbidden)

	_, err = ed.DeleteBoard(b.board.ID)
	assert.ErrorIs(err, mutation.ErrForbidden)

	// admins manage members but only the owner renames the board
	ad, adCache := b.engine(t, admin)
	before := b.srv.Mutations()

	_, err = ad.UpdateBoard(b.board.ID, "Mine now")
	assert.ErrorIs(err, mutation.ErrForbidden)
	assert.Equal(before, b.srv.Mutations())
	assert.Equal([]string{"Roadmap"}, fetchBoards(t, adCache))

	del, err := e.DeleteBoard(b.board.ID)
	require.NoError(t, err)
	require.NoError(t, del.Wait(ctx))

	assert.False(c.Snapshot(cache.Lists(b.board.ID)).Present)
	assert.False(c.Snapshot(cache.Cards(b.todo.ID)).Present)
	assert.Equal([]string{"Launch v2"}, fetchBoards(t, c))
}

func TestRemoveMember(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	viewer, _ := b.srv.AddUser("Viewer", "viewer@example.com")
	b.srv.AddMember(b.board.ID, viewer.ID, model.RoleViewer)

	e, c := b.engine(t, b.owner)

	remove, err := e.RemoveMember(b.board.ID, viewer.ID)
	require.NoError(t, err)

	roster, _ := c.Snapshot(cache.Members(b.board.ID)).Value.(model.BoardMembers)
	assert.Empty(roster.Members)
	require.NoError(t, remove.Wait(context.Background()))

	v, err := c.Fetch(context.Background(), cache.Members(b.board.ID))
	require.NoError(t, err)

	roster, _ = v.(model.BoardMembers)
	assert.Empty(roster.Members)

	_, err = e.RemoveMember(b.board.ID, viewer.ID)
	assert.ErrorIs(err, mutation.ErrNotFound)
}

func TestLabelLifecycle(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	e, c := b.engine(t, b.owner)
	ctx := context.Background()
	x := b.cards[0]

	_, err := e.CreateLabel(b.board.ID, "urgent", "#000000")
	var fields validation.Errors
	require.ErrorAs(t, err, &fields)
	assert.Contains(fields, "color")

	create, err := e.CreateLabel(b.board.ID, "urgent", "#ff9f1a")
	require.NoError(t, err)
	require.NoError(t, create.Wait(ctx))

	labelID := e.RealID(create.TempID())

	add, err := e.AddLabel(b.board.ID, b.todo.ID, x.ID, labelID)
	require.NoError(t, err)
	require.NoError(t, add.Wait(ctx))

	update, err := e.UpdateLabel(b.board.ID, labelID, "blocker", "#eb5a46")
	require.NoError(t, err)
	require.NoError(t, update.Wait(ctx))

	assert.True(c.IsStale(cache.Cards(b.todo.ID)))
	assert.True(c.IsStale(cache.Cards(b.done.ID)))

	_, err = c.Fetch(ctx, cache.Cards(b.todo.ID))
	require.NoError(t, err)

	card, ok := e.FindCard(b.todo.ID, x.ID)
	require.True(t, ok)
	require.Len(t, card.Labels, 1)
	assert.Equal("blocker", card.Labels[0].Label.Name)

	del, err := e.DeleteLabel(b.board.ID, labelID)
	require.NoError(t, err)

	labels, _ := c.Snapshot(cache.Labels(b.board.ID)).Value.([]model.Label)
	assert.Empty(labels)
	require.NoError(t, del.Wait(ctx))

	_, err = c.Fetch(ctx, cache.Cards(b.todo.ID))
	require.NoError(t, err)

	card, _ = e.FindCard(b.todo.ID, x.ID)
	assert.Empty(card.Labels)
}

func TestToggleAssignee(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	e, _ := b.engine(t, b.owner)
	ctx := context.Background()
	y := b.cards[1]

	assign, err := e.ToggleAssignee(b.board.ID, b.todo.ID, y.ID, b.owner)
	require.NoError(t, err)

	card, _ := e.FindCard(b.todo.ID, y.ID)
	require.Len(t, card.Assignees, 1)
	assert.True(model.IsTempID(card.Assignees[0].ID))
	require.NoError(t, assign.Wait(ctx))

	card, _ = e.FindCard(b.todo.ID, y.ID)
	require.Len(t, card.Assignees, 1)
	assert.False(model.IsTempID(card.Assignees[0].ID))

	unassign, err := e.ToggleAssignee(b.board.ID, b.todo.ID, y.ID, b.owner)
	require.NoError(t, err)

	card, _ = e.FindCard(b.todo.ID, y.ID)
	assert.Empty(card.Assignees)
	require.NoError(t, unassign.Wait(ctx))

	assert.Empty(b.srv.Cards(b.todo.ID)[1].Assignees)

	noop, err := e.UnassignUser(b.board.ID, b.todo.ID, y.ID, b.owner.ID)
	assert.NoError(err)
	assert.Nil(noop)
}

func TestDeleteComment(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := newBoard(t)
	ada, _ := b.srv.AddUser("Ada", "ada@example.com")
	bob, _ := b.srv.AddUser("Bob", "bob@example.com")
	b.srv.AddMember(b.board.ID, ada.ID, model.RoleViewer)
	b.srv.AddMember(b.board.ID, bob.ID, model.RoleViewer)

	x := b.cards[0]
	first := b.srv.AddComment(x.ID, ada.ID, "first")
	second := b.srv.AddComment(x.ID, ada.ID, "second")
	ctx := context.Background()

	load := func(e *mutation.Engine, c *cache.Cache) {
		_, err := c.Fetch(ctx, cache.Comments(x.ID))
		require.NoError(t, err)

		_, ok := e.FindComment(x.ID, first.ID)
		require.True(t, ok)
	}

	other, otherCache := b.engine(t, bob)
	load(other, otherCache)

	_, err := other.DeleteComment(b.board.ID, x.ID, first.ID)
	assert.ErrorIs(err, mutation.ErrForbidden)

	author, authorCache := b.engine(t, ada)
	load(author, authorCache)

	del, err := author.DeleteComment(b.board.ID, x.ID, first.ID)
	require.NoError(t, err)

	_, ok := author.FindComment(x.ID, first.ID)
	assert.False(ok)
	require.NoError(t, del.Wait(ctx))

	owner, ownerCache := b.engine(t, b.owner)

	_, err = ownerCache.Fetch(ctx, cache.Comments(x.ID))
	require.NoError(t, err)

	del, err = owner.DeleteComment(b.board.ID, x.ID, second.ID)
	require.NoError(t, err)
	require.NoError(t, del.Wait(ctx))

	assert.Empty(b.srv.Comments(x.ID))
}
