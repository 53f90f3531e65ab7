package controller

import (
	"fmt"
	"strings"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/rivo/tview"
)

func (c *Controller) getCommentsGrid() *tview.Grid {
	c.comments = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	c.comments.SetBorder(true)

	c.commentForm = tview.NewForm().AddInputField("Comment", "", commentMax, nil, nil)

	c.commentForm.AddButton("Post", func() {
		card, ok := c.card()
		if !ok {
			return
		}

		field := inputField(c.commentForm, "Comment")

		_, err := c.engine.CreateComment(c.boardID, card.ID, field.GetText())
		if err != nil {
			c.report("post comment", err)

			return
		}

		field.SetText("")
	})

	c.commentForm.AddButton("Delete my last", func() {
		card, ok := c.card()
		if !ok {
			return
		}

		comments := c.cardComments(card.ID)
		for i := len(comments) - 1; i >= 0; i-- {
			if comments[i].UserID == c.engine.User().ID {
				_, err := c.engine.DeleteComment(c.boardID, card.ID, comments[i].ID)
				c.report("delete comment", err)

				return
			}
		}
	})

	grid := tview.NewGrid().SetRows(len(c.formEvents)+1, 0, 5).SetBorders(true)

	grid.AddItem(c.getFormHeader(), 0, 0, 1, 1, 0, 0, false)
	grid.AddItem(c.comments, 1, 0, 1, 1, 0, 0, false)
	grid.AddItem(c.commentForm, 2, 0, 1, 1, 0, 0, true)

	return grid
}

func (c *Controller) cardComments(cardID string) []model.Comment {
	v, _ := c.cache.Get(cache.Comments(c.engine.RealID(cardID)))
	comments, _ := v.([]model.Comment)

	return comments
}

// switchToComments shows the selected card's comments and keeps them live while the page
// is open.
func (c *Controller) switchToComments() {
	card, ok := c.card()
	if !ok {
		return
	}

	if model.IsTempID(c.engine.RealID(card.ID)) {
		c.report("comments", fmt.Errorf("card is not created yet"))

		return
	}

	key := cache.Comments(c.engine.RealID(card.ID))
	render := func() { c.renderComments(card) }

	c.unwatchComments = c.cache.Watch(key, func(cache.Key, any) { c.queue(render) })

	go func() {
		if _, err := c.cache.Fetch(c.ctx, key); err != nil {
			c.queue(func() { c.report("load comments", err) })
		}
	}()

	inputField(c.commentForm, "Comment").SetText("")
	render()

	c.pages.SwitchToPage(pageComments)
	c.app.SetInputCapture(c.formKeyboard)
	c.app.SetFocus(c.commentForm)
}

func (c *Controller) renderComments(card model.Card) {
	c.comments.SetTitle(fmt.Sprintf(" %s ", card.Title))
	c.comments.SetText(CommentText(c.cardComments(card.ID)))
	c.comments.ScrollToEnd()
}

// CommentText renders comments oldest first. Placeholders are shown dimmed.
func CommentText(comments []model.Comment) string {
	if len(comments) == 0 {
		return "[gray]no comments yet"
	}

	var b strings.Builder

	for _, comment := range comments {
		color := "white"
		if model.IsTempID(comment.ID) {
			color = "gray"
		}

		fmt.Fprintf(&b, "[yellow]%s[white] %s\n[%s]%s\n\n",
			comment.User.Name, comment.CreatedAt.Local().Format("2006-01-02 15:04"), color,
			tview.Escape(comment.Content))
	}

	return strings.TrimRight(b.String(), "\n")
}
