package controller

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"
)

func (c *Controller) initEvents() {
	c.events = map[tcell.Key]KeyEvent{}
	c.boardsEvents = map[tcell.Key]KeyEvent{}
	c.formEvents = map[tcell.Key]KeyEvent{}

	c.initShowEvents(c.events)
	c.initMoveEvents(c.events)
	c.initCardEvents(c.events)
	c.initBoardEvents(c.events)
	c.initExitEvent(c.events)

	c.initBoardsEvents(c.boardsEvents)
	c.initExitEvent(c.boardsEvents)

	c.formEvents[tcell.KeyEscape] = KeyEvent{
		Description: "Cancel",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			if page, _ := c.pages.GetFrontPage(); page == pageBoardForm || c.boardID == "" {
				c.showBoards()
			} else {
				c.showBoard()
			}

			return nil
		},
	}
}

func (c *Controller) initBoardsEvents(events map[tcell.Key]KeyEvent) {
	events[KeyN] = KeyEvent{
		Description: "New board",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.switchToBoardForm(false)

			return nil
		},
	}

	events[KeyE] = KeyEvent{
		Description: "Rename board",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.switchToBoardForm(true)

			return nil
		},
	}

	events[KeyX] = KeyEvent{
		Description: "Delete board",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			board, ok := c.selectedBoard()
			if !ok {
				return nil
			}

			_, err := c.engine.DeleteBoard(board.ID)
			c.report("delete board", err)

			if err == nil && board.ID == c.boardID {
				c.boardID = ""
			}

			return nil
		},
	}
}

func (c *Controller) initExitEvent(events map[tcell.Key]KeyEvent) {
	events[KeyQ] = KeyEvent{
		Description: "Exit",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			log.Info().Msg("terminating application")

			c.app.Stop()

			return nil
		},
	}
}

func (c *Controller) initShowEvents(events map[tcell.Key]KeyEvent) {
	events[KeyH] = KeyEvent{
		Description: "Show previous list",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.selectList(-1)

			return nil
		},
	}

	events[KeyL] = KeyEvent{
		Description: "Show next list",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.selectList(1)

			return nil
		},
	}

	events[KeyShiftB] = KeyEvent{
		Description: "Show boards",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.showBoards()

			return nil
		},
	}

	events[KeyC] = KeyEvent{
		Description: "Show comments",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.switchToComments()

			return nil
		},
	}
}

// getMoveAction moves the selected card by rows within its list, or by lists to the end
// of the target list.
func (c *Controller) getMoveAction(rows, lists int) func(key *tcell.EventKey) *tcell.EventKey {
	return func(key *tcell.EventKey) *tcell.EventKey {
		list, ok := c.list()
		if !ok {
			return nil
		}

		card, ok := c.card()
		if !ok {
			return nil
		}

		if lists == 0 {
			_, err := c.engine.MoveCard(c.boardID, card.ID, list.ID, list.ID, card.Position+rows)
			c.report("move card", err)
			c.renderBoard()

			return nil
		}

		all := c.lists()

		target := c.listIndex + lists
		if target < 0 || target >= len(all) {
			return nil
		}

		dest := all[target]

		_, err := c.engine.MoveCard(c.boardID, card.ID, list.ID, dest.ID, len(c.cards(dest.ID)))
		c.report("move card", err)

		if err == nil {
			// follow the card
			c.listIndex = target
		}

		c.renderBoard()

		return nil
	}
}

// getMoveListAction moves the selected list by delta places and keeps it selected.
func (c *Controller) getMoveListAction(delta int) func(key *tcell.EventKey) *tcell.EventKey {
	return func(key *tcell.EventKey) *tcell.EventKey {
		list, ok := c.list()
		if !ok {
			return nil
		}

		target := c.listIndex + delta
		if target < 0 || target >= len(c.lists()) {
			return nil
		}

		_, err := c.engine.MoveList(c.boardID, list.ID, target)
		c.report("move list", err)

		if err == nil {
			c.listIndex = target
		}

		c.renderBoard()

		return nil
	}
}

func (c *Controller) initMoveEvents(events map[tcell.Key]KeyEvent) {
	events[KeyLess] = KeyEvent{
		Description: "Move list left",
		Action:      c.getMoveListAction(-1),
	}

	events[KeyMore] = KeyEvent{
		Description: "Move list right",
		Action:      c.getMoveListAction(1),
	}

	events[KeyShiftK] = KeyEvent{
		Description: "Move card up",
		Action:      c.getMoveAction(-1, 0),
	}

	events[KeyShiftJ] = KeyEvent{
		Description: "Move card down",
		Action:      c.getMoveAction(1, 0),
	}

	events[KeyShiftH] = KeyEvent{
		Description: "Move card to previous list",
		Action:      c.getMoveAction(0, -1),
	}

	events[KeyShiftL] = KeyEvent{
		Description: "Move card to next list",
		Action:      c.getMoveAction(0, 1),
	}
}

func (c *Controller) initCardEvents(events map[tcell.Key]KeyEvent) {
	events[KeyN] = KeyEvent{
		Description: "New card",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.switchToCardForm(false)

			return nil
		},
	}

	events[KeyE] = KeyEvent{
		Description: "Edit card",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.switchToCardForm(true)

			return nil
		},
	}

	events[KeyX] = KeyEvent{
		Description: "Delete card",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			list, ok := c.list()
			if !ok {
				return nil
			}

			if card, ok := c.card(); ok {
				_, err := c.engine.DeleteCard(c.boardID, list.ID, card.ID)
				c.report("delete card", err)
			}

			return nil
		},
	}

	events[KeyA] = KeyEvent{
		Description: "Assign me",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			list, ok := c.list()
			if !ok {
				return nil
			}

			if card, ok := c.card(); ok {
				_, err := c.engine.ToggleAssignee(c.boardID, list.ID, card.ID, c.engine.User())
				c.report("assign", err)
			}

			return nil
		},
	}

	events[KeyT] = KeyEvent{
		Description: "Labels",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.switchToLabelForm()

			return nil
		},
	}
}

func (c *Controller) initBoardEvents(events map[tcell.Key]KeyEvent) {
	events[KeyShiftN] = KeyEvent{
		Description: "New list",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.switchToListForm(false)

			return nil
		},
	}

	events[KeyShiftE] = KeyEvent{
		Description: "Rename list",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.switchToListForm(true)

			return nil
		},
	}

	events[KeyD] = KeyEvent{
		Description: "Delete list",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			if list, ok := c.list(); ok {
				_, err := c.engine.DeleteList(c.boardID, list.ID)
				c.report("delete list", err)
			}

			return nil
		},
	}

	events[KeyShiftM] = KeyEvent{
		Description: "Members",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.switchToMembersForm()

			return nil
		},
	}

	events[KeyR] = KeyEvent{
		Description: "Refresh",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.session.Refresh()
			c.statusLine.SetText("refreshing...")

			return nil
		},
	}
}

// started reports a rejected mutation, or returns to the board.
func (c *Controller) started(action string, err error) {
	if err != nil {
		c.report(action, err)

		return
	}

	c.showBoard()
}
