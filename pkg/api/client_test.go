package api_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/api"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/api/apitest"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*apitest.Server, *api.Client, model.Board) {
	t.Helper()

	srv := apitest.NewServer(t)
	owner, token := srv.AddUser("Owner", "owner@example.com")
	board := srv.AddBoard(owner.ID, "Roadmap")

	return srv, api.NewClient(srv.APIURL(), api.WithToken(token)), board
}

func TestListsEnvelope(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	srv, client, board := setup(t)
	srv.AddList(board.ID, "todo")
	srv.AddList(board.ID, "done")

	lists, err := client.Lists(context.Background(), board.ID)
	require.NoError(t, err)

	assert.Len(lists, 2)
	assert.Equal("todo", lists[0].Title)
	assert.Equal(0, lists[0].Position)
	assert.Equal("done", lists[1].Title)
	assert.Equal(1, lists[1].Position)
}

func TestBoardsAndMembers(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	srv, client, board := setup(t)
	editor, _ := srv.AddUser("Editor", "editor@example.com")
	srv.AddMember(board.ID, editor.ID, model.RoleEditor)

	boards, err := client.Boards(context.Background())
	require.NoError(t, err)
	assert.Len(boards, 1)
	assert.Equal("Roadmap", boards[0].Name)

	members, err := client.BoardMembers(context.Background(), board.ID)
	require.NoError(t, err)
	assert.Equal("Owner", members.Owner.Name)
	require.Len(t, members.Members, 1)
	assert.Equal(model.RoleEditor, members.Members[0].Role)

	member, err := client.UpdateMemberRole(context.Background(), board.ID, editor.ID, model.RoleViewer)
	require.NoError(t, err)
	assert.Equal(model.RoleViewer, member.Role)
}

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	srv, client, board := setup(t)
	viewer, viewerToken := srv.AddUser("Viewer", "viewer@example.com")
	srv.AddMember(board.ID, viewer.ID, model.RoleViewer)

	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		kind api.Kind
	}{
		{
			name: "viewer cannot create lists",
			call: func() error {
				_, err := api.NewClient(srv.APIURL(), api.WithToken(viewerToken)).CreateList(ctx, board.ID, "x")
				return err
			},
			kind: api.KindForbidden,
		},
		{
			name: "missing token",
			call: func() error {
				_, err := api.NewClient(srv.APIURL()).Boards(ctx)
				return err
			},
			kind: api.KindUnauthorized,
		},
		{
			name: "unknown list",
			call: func() error {
				_, err := client.Cards(ctx, "00000000-0000-0000-0000-000000000000")
				return err
			},
			kind: api.KindNotFound,
		},
		{
			name: "empty title",
			call: func() error {
				_, err := client.CreateList(ctx, board.ID, " ")
				return err
			},
			kind: api.KindValidation,
		},
		{
			name: "duplicate invite",
			call: func() error {
				_, err := client.InviteMember(ctx, board.ID, "viewer@example.com")
				return err
			},
			kind: api.KindConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, api.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestInjectedServerError(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	srv, client, board := setup(t)
	srv.Fail(http.MethodGet, "/boards/"+board.ID+"/lists", http.StatusInternalServerError, 1)

	_, err := client.Lists(context.Background(), board.ID)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(api.KindServer, apiErr.Kind)
	assert.Equal(http.StatusInternalServerError, apiErr.Status)
	assert.Equal("injected failure 500", apiErr.Message)

	_, err = client.Lists(context.Background(), board.ID)
	assert.NoError(err)
}

func TestNetworkError(t *testing.T) {
	t.Parallel()

	srv, client, _ := setup(t)
	srv.Close()

	_, err := client.Boards(context.Background())
	assert.True(t, api.IsKind(err, api.KindNetwork), "got %v", err)
}

func TestCardLifecycle(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	ctx := context.Background()

	srv, client, board := setup(t)
	todo := srv.AddList(board.ID, "todo")
	done := srv.AddList(board.ID, "done")
	label := srv.AddLabel(board.ID, "bug", "#eb5a46")

	card, err := client.CreateCard(ctx, todo.ID, api.CardInput{Title: "write tests"})
	require.NoError(t, err)
	assert.True(model.IsServerID(card.ID))

	title := "write more tests"
	card, err = client.UpdateCard(ctx, card.ID, api.CardPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(title, card.Title)

	cl, err := client.AddCardLabel(ctx, card.ID, label.ID)
	require.NoError(t, err)
	assert.Equal("bug", cl.Label.Name)

	card, err = client.MoveCard(ctx, card.ID, done.ID, 0)
	require.NoError(t, err)
	assert.Equal(done.ID, card.ListID)
	assert.Empty(srv.Cards(todo.ID))
	assert.Len(srv.Cards(done.ID), 1)

	require.NoError(t, client.DeleteCard(ctx, card.ID))
	assert.Empty(srv.Cards(done.ID))
}

func TestLoginAndParseToken(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	srv := apitest.NewServer(t)
	user, _ := srv.AddUser("Ada", "ada@example.com")

	client := api.NewClient(srv.APIURL())

	_, err := client.Login(context.Background(), api.Credentials{Email: "ada@example.com", Password: "wrong"})
	assert.True(api.IsKind(err, api.KindUnauthorized))

	res, err := client.Login(context.Background(), api.Credentials{Email: "ada@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(user.ID, res.User.ID)

	claims, err := api.ParseTokenUnverified(res.Token)
	require.NoError(t, err)
	assert.Equal(user.ID, claims.UserID)
	assert.False(claims.Expired(time.Now()))
	assert.True(claims.Expired(time.Now().Add(2 * time.Hour)))

	_, err = api.ParseTokenUnverified("not-a-token")
	assert.Error(err)
}

func TestLoaderMapsEveryKind(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	ctx := context.Background()

	srv, client, board := setup(t)
	list := srv.AddList(board.ID, "todo")
	card := srv.AddCard(list.ID, "a")
	srv.AddLabel(board.ID, "bug", "#eb5a46")

	v, err := client.Load(ctx, cache.Lists(board.ID))
	require.NoError(t, err)
	assert.IsType([]model.List{}, v)

	v, err = client.Load(ctx, cache.Cards(list.ID))
	require.NoError(t, err)
	assert.IsType([]model.Card{}, v)

	v, err = client.Load(ctx, cache.Comments(card.ID))
	require.NoError(t, err)
	assert.IsType([]model.Comment{}, v)

	v, err = client.Load(ctx, cache.Labels(board.ID))
	require.NoError(t, err)
	assert.IsType([]model.Label{}, v)

	v, err = client.Load(ctx, cache.Members(board.ID))
	require.NoError(t, err)
	assert.IsType(model.BoardMembers{}, v)

	v, err = client.Load(ctx, cache.Boards())
	require.NoError(t, err)
	assert.IsType([]model.Board{}, v)

	_, err = client.Load(ctx, cache.Key{Kind: "nope"})
	assert.Error(err)
}
