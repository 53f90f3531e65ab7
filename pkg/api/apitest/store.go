package apitest

import (
	"time"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/google/uuid"
)

func (s *Server) roleLocked(boardID, userID string) model.Role {
	board, ok := s.boards[boardID]
	if !ok {
		return model.RoleNone
	}

	if board.OwnerID == userID {
		return model.RoleAdmin
	}

	for _, m := range board.Members {
		if m.UserID == userID {
			return m.Role
		}
	}

	return model.RoleNone
}

func (s *Server) createBoardLocked(ownerID, name string) model.Board {
	board := &model.Board{
		ID:      uuid.NewString(),
		Name:    name,
		OwnerID: ownerID,
		Owner:   s.accounts[ownerID].user,
		Members: []model.Member{},
	}
	s.boards[board.ID] = board
	s.boardIDs = append(s.boardIDs, board.ID)

	return board.Clone()
}

func (s *Server) createListLocked(boardID, title string) model.List {
	list := &model.List{ID: uuid.NewString(), BoardID: boardID, Title: title}
	s.lists[list.ID] = list
	s.listIDs[boardID] = append(s.listIDs[boardID], list.ID)
	list.Position = len(s.listIDs[boardID]) - 1

	return *list
}

func (s *Server) listsLocked(boardID string) []model.List {
	out := []model.List{}

	for i, id := range s.listIDs[boardID] {
		list := *s.lists[id]
		list.Position = i
		out = append(out, list)
	}

	return out
}

func (s *Server) createCardLocked(listID string, in model.Card) model.Card {
	card := in.Clone()
	card.ID = uuid.NewString()
	card.ListID = listID
	card.Labels = []model.CardLabel{}
	card.Assignees = []model.CardAssignee{}

	s.cards[card.ID] = &card
	s.cardIDs[listID] = append(s.cardIDs[listID], card.ID)
	card.Position = len(s.cardIDs[listID]) - 1

	return card.Clone()
}

func (s *Server) cardsLocked(listID string) []model.Card {
	out := []model.Card{}

	for i, id := range s.cardIDs[listID] {
		card := s.cards[id].Clone()
		card.Position = i
		out = append(out, card)
	}

	return out
}

func (s *Server) cardLocked(cardID string) (model.Card, bool) {
	card, ok := s.cards[cardID]
	if !ok {
		return model.Card{}, false
	}

	out := card.Clone()
	out.Position = indexOf(s.cardIDs[card.ListID], cardID)

	return out, true
}

func (s *Server) boardOfListLocked(listID string) string {
	if list, ok := s.lists[listID]; ok {
		return list.BoardID
	}

	return ""
}

func (s *Server) boardOfCardLocked(cardID string) string {
	if card, ok := s.cards[cardID]; ok {
		return s.boardOfListLocked(card.ListID)
	}

	return ""
}

func (s *Server) createLabelLocked(boardID, name, color string) model.Label {
	label := &model.Label{ID: uuid.NewString(), BoardID: boardID, Name: name, Color: color}
	s.labels[label.ID] = label
	s.labelIDs[boardID] = append(s.labelIDs[boardID], label.ID)

	return *label
}

func (s *Server) labelsLocked(boardID string) []model.Label {
	out := []model.Label{}

	for _, id := range s.labelIDs[boardID] {
		out = append(out, *s.labels[id])
	}

	return out
}

func (s *Server) createCommentLocked(cardID, userID, content string) model.Comment {
	comment := &model.Comment{
		ID:        uuid.NewString(),
		CardID:    cardID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		User:      s.accounts[userID].user,
	}
	s.comments[comment.ID] = comment
	s.commIDs[cardID] = append(s.commIDs[cardID], comment.ID)

	return *comment
}

func (s *Server) commentsLocked(cardID string) []model.Comment {
	out := []model.Comment{}

	for _, id := range s.commIDs[cardID] {
		out = append(out, *s.comments[id])
	}

	return out
}

func (s *Server) accountByEmailLocked(email string) (*account, bool) {
	for _, a := range s.accounts {
		if a.user.Email == email {
			return a, true
		}
	}

	return nil, false
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}

	return -1
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))

	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}

	return out
}

func insertID(ids []string, at int, id string) []string {
	if at < 0 {
		at = 0
	}

	if at > len(ids) {
		at = len(ids)
	}

	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:at]...)
	out = append(out, id)

	return append(out, ids[at:]...)
}
