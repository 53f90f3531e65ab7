package controller

import (
	"fmt"
	"strings"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	titleRatio = 3
	dueFormat  = "2006-01-02"
)

var headers = []string{"title", "due", "labels", "assignees"}

// ListContent implements tview.TableContent over the cards of one list.
type ListContent struct {
	tview.TableContentReadOnly
	cards []model.Card
}

// SetCards replaces the rendered cards.
func (l *ListContent) SetCards(cards []model.Card) {
	l.cards = cards
}

// Card returns the card rendered at row.
func (l *ListContent) Card(row int) (model.Card, bool) {
	// adjust for the header row
	if idx := row - 1; idx >= 0 && idx < len(l.cards) {
		return l.cards[idx], true
	}

	return model.Card{}, false
}

// Row returns the table row of the card, or 0 when it is not rendered.
func (l *ListContent) Row(cardID string) int {
	for i, card := range l.cards {
		if card.ID == cardID {
			return i + 1
		}
	}

	return 0
}

// GetCell returns the cell at the given position or nil if no cell.
func (l *ListContent) GetCell(row, col int) *tview.TableCell {
	if col < 0 || col >= len(headers) {
		return nil
	}

	if row == 0 {
		return tview.NewTableCell(headers[col]).SetExpansion(expansion(col)).
			SetTextColor(tcell.ColorYellow).SetSelectable(false)
	}

	card, ok := l.Card(row)
	if !ok {
		return nil
	}

	var cell *tview.TableCell

	switch col {
	case 0:
		cell = tview.NewTableCell(card.Title).SetReference(card.ID)
	case 1:
		due := ""
		if card.DueDate != nil {
			due = card.DueDate.Format(dueFormat)
		}

		cell = tview.NewTableCell(due)
	case 2:
		cell = tview.NewTableCell(LabelText(card.Labels))
	case 3:
		cell = tview.NewTableCell(AssigneeText(card.Assignees))
	}

	// placeholders are not confirmed by the server yet
	if model.IsTempID(card.ID) {
		cell.SetTextColor(tcell.ColorGray)
	}

	return cell.SetExpansion(expansion(col))
}

// GetRowCount returns the number of rows in the table.
func (l *ListContent) GetRowCount() int {
	return len(l.cards) + 1
}

// GetColumnCount returns the number of columns in the table.
func (l *ListContent) GetColumnCount() int {
	return len(headers)
}

func expansion(col int) int {
	if col == 0 {
		return titleRatio
	}

	return 1
}

// LabelText renders card labels in their palette colors.
func LabelText(labels []model.CardLabel) string {
	parts := make([]string, 0, len(labels))

	for _, l := range labels {
		name := l.Label.Name
		if name == "" {
			name = "?"
		}

		if model.IsPaletteColor(l.Label.Color) {
			parts = append(parts, fmt.Sprintf("[%s]%s[-]", strings.ToLower(l.Label.Color), name))
		} else {
			parts = append(parts, name)
		}
	}

	return strings.Join(parts, ", ")
}

// AssigneeText lists the assignees by name.
func AssigneeText(assignees []model.CardAssignee) string {
	parts := make([]string, 0, len(assignees))

	for _, a := range assignees {
		name := a.User.Name
		if name == "" {
			name = a.UserID
		}

		parts = append(parts, name)
	}

	return strings.Join(parts, ", ")
}
