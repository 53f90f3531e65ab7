package controller_test

import (
	"strings"
	"testing"
	"time"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/controller"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsKey(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	assert.Equal(controller.KeyQ, controller.AsKey(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)))
	assert.Equal(controller.KeyShiftK, controller.AsKey(tcell.NewEventKey(tcell.KeyRune, 'K', tcell.ModShift)))
	assert.Equal(tcell.KeyEscape, controller.AsKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	assert.NotEqual(controller.KeyH, controller.KeyShiftH)

	assert.Equal("q", controller.KeyName(controller.KeyQ))
	assert.Equal("Esc", controller.KeyName(tcell.KeyEscape))
}

func TestListContent(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	due := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	content := &controller.ListContent{}
	content.SetCards([]model.Card{
		{ID: "c1", Title: "first", DueDate: &due},
		{ID: model.NewTempID(), Title: "pending"},
	})

	assert.Equal(3, content.GetRowCount())
	assert.Equal(4, content.GetColumnCount())
	assert.Equal("title", content.GetCell(0, 0).Text)
	assert.Equal("first", content.GetCell(1, 0).Text)
	assert.Equal("2024-03-09", content.GetCell(1, 1).Text)
	assert.Equal(tcell.ColorGray, content.GetCell(2, 0).Color)
	assert.Nil(content.GetCell(3, 0))
	assert.Nil(content.GetCell(1, 4))

	assert.Equal(1, content.Row("c1"))
	assert.Equal(0, content.Row("missing"))

	card, ok := content.Card(1)
	require.True(t, ok)
	assert.Equal("c1", card.ID)

	_, ok = content.Card(0)
	assert.False(ok)
}

func TestLabelAndAssigneeText(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	labels := []model.CardLabel{
		{LabelID: "l1", Label: model.Label{Name: "bug", Color: "#EB5A46"}},
		{LabelID: "l2", Label: model.Label{Name: "odd", Color: "#123456"}},
	}
	assert.Equal("[#eb5a46]bug[-], odd", controller.LabelText(labels))

	assignees := []model.CardAssignee{
		{UserID: "u1", User: model.User{Name: "Ada"}},
		{UserID: "u2"},
	}
	assert.Equal("Ada, u2", controller.AssigneeText(assignees))
}

func TestParseDue(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	due, err := controller.ParseDue(" 2024-12-01 ")
	require.NoError(t, err)
	assert.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), *due)

	due, err = controller.ParseDue("")
	assert.NoError(err)
	assert.Nil(due)

	_, err = controller.ParseDue("tomorrow")
	assert.Error(err)
}

func TestCardPatchOnlyChangedFields(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	due := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	card := model.Card{Title: "same", Description: "old", DueDate: &due}

	patch := controller.CardPatch(card, "same", "new", &due)
	assert.Nil(patch.Title)
	require.NotNil(t, patch.Description)
	assert.Equal("new", *patch.Description)
	assert.Nil(patch.DueDate)

	later := due.AddDate(0, 0, 1)
	patch = controller.CardPatch(card, "other", "old", &later)
	require.NotNil(t, patch.Title)
	assert.Equal("other", *patch.Title)
	assert.Equal(&later, patch.DueDate)
}

func TestCommentText(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	assert.Equal("[gray]no comments yet", controller.CommentText(nil))

	text := controller.CommentText([]model.Comment{
		{ID: "c1", Content: "looks [good]", User: model.User{Name: "Ada"}, CreatedAt: time.Now()},
		{ID: model.NewTempID(), Content: "hi", User: model.User{Name: "Bob"}, CreatedAt: time.Now()},
	})

	assert.Contains(text, "[yellow]Ada")
	assert.Contains(text, "looks [good[]")
	assert.True(strings.HasSuffix(text, "[gray]hi"))
}

func TestMemberOptions(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	options := controller.MemberOptions([]model.Member{
		{UserID: "u1", Role: model.RoleEditor, User: model.User{Name: "Ada", Email: "ada@example.com"}},
		{UserID: "u2", Role: model.RoleViewer, User: model.User{Name: "Bob", Email: "bob@example.com"}},
	})

	assert.Equal([]string{"Ada <ada@example.com> (editor)", "Bob <bob@example.com> (viewer)"}, options)
	assert.Empty(controller.MemberOptions(nil))
}

func TestLabelOptions(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	labels := []model.Label{{ID: "l1", Name: "bug"}, {ID: "l2", Name: "idea"}}
	card := model.Card{Labels: []model.CardLabel{{LabelID: "l2"}}}

	assert.Equal([]string{"+ bug", "- idea"}, controller.LabelOptions(labels, card))
	assert.Equal([]string{"+ bug", "+ idea"}, controller.LabelOptions(labels, model.Card{}))
}
