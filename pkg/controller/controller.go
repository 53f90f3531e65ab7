package controller

import (
	"context"
	"fmt"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/mutation"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/permission"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/realtime"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	pageBoards    = "boards"
	pageBoardForm = "board form"
	pageBoard     = "board"
	pageCard      = "card"
	pageList      = "list"
	pageComments  = "comments"
	pageLabels    = "labels"
	pageMembers   = "members"
)

// Controller mediates between the cache, the mutation engine and the view. Every method
// that touches a primitive runs on the tview event loop.
type Controller struct {
	ctx     context.Context
	app     *tview.Application
	pages   *tview.Pages
	cache   *cache.Cache
	engine  *mutation.Engine
	session *realtime.Session

	boards      *tview.List
	boardForm   *tview.Form
	header      *tview.Table
	table       *tview.Table
	content     *ListContent
	statusLine  *tview.TextView
	cardForm    *tview.Form
	listForm    *tview.Form
	commentForm *tview.Form
	labelForm   *tview.Form
	membersForm *tview.Form
	comments    *tview.TextView

	// boardIDs holds the ids shown on the boards page, in order.
	boardIDs     []string
	boardID      string
	listIndex    int
	selectedCard string
	// editing is true while the card form edits selectedCard rather than creating a card.
	editing bool
	// renamingList is true while the list form renames the selected list.
	renamingList bool
	// renamingBoard is the board the board form renames; empty creates a board.
	renamingBoard string
	unwatch []func()
	// unwatchComments stops live comments when the comments page closes.
	unwatchComments func()

	events       map[tcell.Key]KeyEvent
	boardsEvents map[tcell.Key]KeyEvent
	formEvents   map[tcell.Key]KeyEvent
}

// KeyEvent defines an event associated with a keypress.
type KeyEvent struct {
	Description string
	Action      func(*tcell.EventKey) *tcell.EventKey
}

// NewController creates a new Controller to run the app.
func NewController(ctx context.Context, c *cache.Cache, engine *mutation.Engine, session *realtime.Session) *Controller {
	ctrl := Controller{
		ctx:     ctx,
		app:     tview.NewApplication(),
		pages:   tview.NewPages(),
		cache:   c,
		engine:  engine,
		session: session,
		content: &ListContent{},
	}

	ctrl.initEvents()

	return &ctrl
}

// Go builds the pages and runs the app until it stops.
func (c *Controller) Go() error {
	c.statusLine = tview.NewTextView().SetDynamicColors(true)

	c.pages.AddPage(pageBoards, c.getBoardsGrid(), true, true)
	c.pages.AddPage(pageBoardForm, c.getFormGrid(c.initBoardForm()), true, false)
	c.pages.AddPage(pageBoard, c.getBoardGrid(), true, false)
	c.pages.AddPage(pageCard, c.getFormGrid(c.initCardForm()), true, false)
	c.pages.AddPage(pageList, c.getFormGrid(c.initListForm()), true, false)
	c.pages.AddPage(pageComments, c.getCommentsGrid(), true, false)
	c.pages.AddPage(pageLabels, c.getFormGrid(c.initLabelForm()), true, false)
	c.pages.AddPage(pageMembers, c.getFormGrid(c.initMembersForm()), true, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(c.pages, 0, 1, true).
		AddItem(c.statusLine, 1, 0, false)

	unwatch := c.cache.Watch(cache.Boards(), func(cache.Key, any) { c.queue(c.renderBoards) })
	defer unwatch()

	c.showBoards()

	if err := c.app.SetRoot(root, true).Run(); err != nil {
		return fmt.Errorf("error running the terminal ui: %w", err)
	}

	return nil
}

// Stop ends the app.
func (c *Controller) Stop() {
	c.app.Stop()
}

// SetStatus shows msg on the status line. It is safe to call from any goroutine.
func (c *Controller) SetStatus(msg string) {
	c.queue(func() {
		c.statusLine.SetText(msg)
	})
}

// MutationFailed reports a rolled back mutation on the status line.
func (c *Controller) MutationFailed(m *mutation.Mutation, err error) {
	c.SetStatus(fmt.Sprintf("[red]%s failed:[white] %s", m.Name(), err))
}

// queue runs fn on the event loop. Cache watchers fire while the engine holds its lock, so
// this must never block the caller.
func (c *Controller) queue(fn func()) {
	go c.app.QueueUpdateDraw(fn)
}

func (c *Controller) keyboard(evt *tcell.EventKey) *tcell.EventKey {
	if k, ok := c.events[AsKey(evt)]; ok {
		return k.Action(evt)
	}

	return evt
}

func (c *Controller) boardsKeyboard(evt *tcell.EventKey) *tcell.EventKey {
	if k, ok := c.boardsEvents[AsKey(evt)]; ok {
		return k.Action(evt)
	}

	return evt
}

func (c *Controller) formKeyboard(evt *tcell.EventKey) *tcell.EventKey {
	if k, ok := c.formEvents[AsKey(evt)]; ok {
		return k.Action(evt)
	}

	return evt
}

// board returns the open board from the cache.
func (c *Controller) board() (model.Board, bool) {
	v, _ := c.cache.Get(cache.Boards())
	boards, _ := v.([]model.Board)

	for _, b := range boards {
		if b.ID == c.boardID {
			return b, true
		}
	}

	return model.Board{}, false
}

func (c *Controller) capabilities() permission.Capabilities {
	board, ok := c.board()
	if !ok {
		return permission.Capabilities{}
	}

	return permission.For(&board, c.engine.User().ID)
}

func (c *Controller) lists() []model.List {
	v, _ := c.cache.Get(cache.Lists(c.boardID))
	lists, _ := v.([]model.List)

	return lists
}

// list returns the selected list.
func (c *Controller) list() (model.List, bool) {
	lists := c.lists()
	if len(lists) == 0 {
		return model.List{}, false
	}

	c.listIndex = clampIndex(c.listIndex, len(lists))

	return lists[c.listIndex], true
}

func (c *Controller) cards(listID string) []model.Card {
	v, _ := c.cache.Get(cache.Cards(listID))
	cards, _ := v.([]model.Card)

	return cards
}

func (c *Controller) card() (model.Card, bool) {
	list, ok := c.list()
	if !ok || c.selectedCard == "" {
		return model.Card{}, false
	}

	return c.engine.FindCard(list.ID, c.selectedCard)
}

// report logs a failed action and shows it on the status line.
func (c *Controller) report(action string, err error) {
	if err == nil {
		return
	}

	log.Warn().Err(err).Str("action", action).Msg("action failed")
	c.statusLine.SetText(fmt.Sprintf("[red]%s:[white] %s", action, err))
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}

	if i >= n {
		return n - 1
	}

	return i
}
