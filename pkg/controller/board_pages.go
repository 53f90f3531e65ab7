package controller

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

func (c *Controller) getBoardsGrid() *tview.Grid {
	c.boards = tview.NewList().ShowSecondaryText(true)
	c.boards.SetBorder(true).SetTitle(" boards ")
	c.boards.SetDoneFunc(c.app.Stop)

	header := tview.NewTable().SetBorders(false).SetSelectable(false, false)

	for col, text := range shortcutColumns(c.boardsEvents)[0] {
		header.SetCell(0, col, tview.NewTableCell(text).SetExpansion(1))
	}

	grid := tview.NewGrid().SetRows(1, 0).SetBorders(true)

	grid.AddItem(header, 0, 0, 1, 1, 0, 0, false)
	grid.AddItem(c.boards, 1, 0, 1, 1, 0, 0, true)

	return grid
}

// selectedBoard returns the board highlighted on the boards page.
func (c *Controller) selectedBoard() (model.Board, bool) {
	index := c.boards.GetCurrentItem()
	if index < 0 || index >= len(c.boardIDs) {
		return model.Board{}, false
	}

	v, _ := c.cache.Get(cache.Boards())
	boards, _ := v.([]model.Board)

	for _, b := range boards {
		if b.ID == c.boardIDs[index] {
			return b, true
		}
	}

	return model.Board{}, false
}

func (c *Controller) renderBoards() {
	v, ok := c.cache.Get(cache.Boards())
	if !ok {
		return
	}

	boards, _ := v.([]model.Board)
	current := c.boards.GetCurrentItem()

	c.boards.Clear()
	c.boardIDs = c.boardIDs[:0]

	for _, b := range boards {
		boardID := b.ID
		c.boardIDs = append(c.boardIDs, boardID)
		secondary := fmt.Sprintf("owner: %s, members: %d", b.Owner.Name, len(b.Members))

		c.boards.AddItem(b.Name, secondary, 0, func() { c.openBoard(boardID) })
	}

	if current < c.boards.GetItemCount() {
		c.boards.SetCurrentItem(current)
	}
}

func (c *Controller) showBoards() {
	c.app.SetInputCapture(c.boardsKeyboard)
	c.renderBoards()
	c.pages.SwitchToPage(pageBoards)
	c.app.SetFocus(c.boards)

	go func() {
		if _, err := c.cache.Fetch(c.ctx, cache.Boards()); err != nil {
			c.queue(func() { c.report("load boards", err) })
		}
	}()
}

// openBoard loads the board off the event loop, then shows it.
func (c *Controller) openBoard(boardID string) {
	if model.IsTempID(boardID) {
		c.report("open board", fmt.Errorf("board is not created yet"))

		return
	}

	c.statusLine.SetText("loading board...")

	go func() {
		err := c.session.Open(c.ctx, boardID)

		c.queue(func() {
			if err != nil {
				c.report("open board", err)

				return
			}

			c.statusLine.SetText("")
			c.boardID = boardID
			c.listIndex = 0
			c.selectedCard = ""

			c.watchBoard()
			c.showBoard()
		})
	}()
}

// watchBoard re-renders the board whenever one of its cached collections changes.
func (c *Controller) watchBoard() {
	for _, unwatch := range c.unwatch {
		unwatch()
	}

	redraw := func(cache.Key, any) { c.queue(c.renderBoard) }

	c.unwatch = []func(){
		c.cache.Watch(cache.Boards(), redraw),
		c.cache.Watch(cache.Labels(c.boardID), redraw),
		c.cache.Watch(cache.Lists(c.boardID), func(cache.Key, any) {
			c.queue(func() {
				c.watchBoard()
				c.renderBoard()
			})
		}),
	}

	for _, l := range c.lists() {
		c.unwatch = append(c.unwatch, c.cache.Watch(cache.Cards(l.ID), redraw))
	}
}

func (c *Controller) getBoardGrid() *tview.Grid {
	c.header = tview.NewTable().SetBorders(false).SetSelectable(false, false)

	c.table = tview.NewTable().SetBorders(false)
	c.table.SetContent(c.content)
	c.table.SetSelectable(true, false)
	c.table.SetFixed(1, 0)
	c.table.SetSelectionChangedFunc(c.setCurrentRow)

	grid := tview.NewGrid().SetRows(headerRows(c.events)+1, 0).SetBorders(true)

	grid.AddItem(c.header, 0, 0, 1, 1, 0, 0, false)
	grid.AddItem(c.table, 1, 0, 1, 1, 0, 0, true)

	return grid
}

func (c *Controller) showBoard() {
	if c.unwatchComments != nil {
		c.unwatchComments()
		c.unwatchComments = nil
	}

	c.app.SetInputCapture(c.keyboard)
	c.renderBoard()
	c.pages.SwitchToPage(pageBoard)
	c.app.SetFocus(c.table)
}

// renderBoard redraws the header and the selected list, keeping the selected card selected
// wherever it moved.
func (c *Controller) renderBoard() {
	if c.boardID == "" {
		return
	}

	board, _ := c.board()
	lists := c.lists()

	title := fmt.Sprintf("[yellow]%s", board.Name)
	if caps := c.capabilities(); caps.Role != model.RoleNone {
		title += fmt.Sprintf(" [white](%s)", caps.Role)
	}

	var cards []model.Card

	if list, ok := c.list(); ok {
		title += fmt.Sprintf("  [green]%s[white] %d/%d", list.Title, c.listIndex+1, len(lists))
		cards = c.cards(list.ID)
	} else {
		title += "  [gray]no lists yet"
	}

	c.setBoardHeader(title)
	c.content.SetCards(cards)

	row := c.content.Row(c.engine.RealID(c.selectedCard))
	if row == 0 {
		row = c.content.Row(c.selectedCard)
	}

	switch {
	case row > 0:
		c.table.Select(row, 0)
	case len(cards) > 0:
		c.table.Select(1, 0)
	default:
		c.selectedCard = ""
	}
}

// setBoardHeader shows the title, followed by 3 columns listing keyboard shortcuts: misc,
// "Show ..." and "Move ..." shortcuts, each sorted alphabetically.
func (c *Controller) setBoardHeader(title string) {
	c.header.Clear()
	c.header.SetCell(0, 0, tview.NewTableCell(title))

	for col, texts := range shortcutColumns(c.events) {
		for row, text := range texts {
			c.header.SetCell(row+1, col, tview.NewTableCell(text).SetExpansion(1))
		}
	}
}

func shortcutColumns(events map[tcell.Key]KeyEvent) [3][]string {
	var columns [3][]string

	for key, event := range events {
		text := fmt.Sprintf("[orange]<%s>[white] %s", KeyName(key), event.Description)

		switch {
		case strings.HasPrefix(event.Description, "Show"):
			columns[1] = append(columns[1], text)
		case strings.HasPrefix(event.Description, "Move"):
			columns[2] = append(columns[2], text)
		default:
			columns[0] = append(columns[0], text)
		}
	}

	for col := range columns {
		sort.Strings(columns[col])
	}

	return columns
}

func headerRows(events map[tcell.Key]KeyEvent) int {
	rows := 0

	for _, texts := range shortcutColumns(events) {
		rows = max(rows, len(texts))
	}

	return rows
}

// when the row selection changes, update the selected card.
func (c *Controller) setCurrentRow(row, _ int) {
	card, ok := c.content.Card(row)
	if !ok {
		return
	}

	c.selectedCard = card.ID

	log.Debug().Int("row", row).Str("card", card.ID).Msg("selected card")
}

func (c *Controller) selectList(delta int) {
	lists := c.lists()
	if len(lists) == 0 {
		return
	}

	c.listIndex = clampIndex(c.listIndex+delta, len(lists))
	c.selectedCard = ""
	c.renderBoard()
}
