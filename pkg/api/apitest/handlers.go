package apitest

import (
	"net/http"
	"strings"
	"time"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/google/uuid"
)

type event struct {
	boardID string
	name    string
	data    map[string]string
}

type result struct {
	status int
	body   any
	events []event
}

// op runs with s.mu held.
type op func(r *http.Request, userID string) result

func reply(status int, body any, events ...event) result {
	return result{status: status, body: body, events: events}
}

func fail(status int, message string) result {
	return result{status: status, body: map[string]string{"message": message}}
}

func data(message string, v any) map[string]any {
	return map[string]any{"message": message, "data": v}
}

func canView(r model.Role) bool  { return r != model.RoleNone }
func canEdit(r model.Role) bool  { return r == model.RoleAdmin || r == model.RoleEditor }
func canAdmin(r model.Role) bool { return r == model.RoleAdmin }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", s.unauthed(s.login))
	mux.HandleFunc("POST /auth/signup", s.unauthed(s.signup))
	mux.HandleFunc("GET /ws", s.serveWS)

	mux.HandleFunc("GET /boards", s.authed(s.getBoards))
	mux.HandleFunc("POST /boards", s.authed(s.createBoard))
	mux.HandleFunc("PUT /boards/{id}", s.authed(s.updateBoard))
	mux.HandleFunc("DELETE /boards/{id}", s.authed(s.deleteBoard))
	mux.HandleFunc("GET /boards/{id}/members", s.authed(s.getMembers))
	mux.HandleFunc("POST /boards/{id}/invite", s.authed(s.invite))
	mux.HandleFunc("PUT /boards/{id}/members/{uid}/role", s.authed(s.updateRole))
	mux.HandleFunc("DELETE /boards/{id}/members/{uid}", s.authed(s.removeMember))

	mux.HandleFunc("GET /boards/{id}/lists", s.authed(s.getLists))
	mux.HandleFunc("POST /boards/{id}/lists", s.authed(s.createList))
	mux.HandleFunc("PUT /lists/{id}", s.authed(s.updateList))
	mux.HandleFunc("DELETE /lists/{id}", s.authed(s.deleteList))
	mux.HandleFunc("PUT /lists/{id}/move", s.authed(s.moveList))

	mux.HandleFunc("GET /lists/{id}/cards", s.authed(s.getCards))
	mux.HandleFunc("POST /lists/{id}/cards", s.authed(s.createCard))
	mux.HandleFunc("PUT /cards/{id}", s.authed(s.updateCard))
	mux.HandleFunc("DELETE /cards/{id}", s.authed(s.deleteCard))
	mux.HandleFunc("PUT /cards/{id}/move", s.authed(s.moveCard))
	mux.HandleFunc("POST /cards/{id}/assign", s.authed(s.assign))
	mux.HandleFunc("DELETE /cards/{id}/assign/{uid}", s.authed(s.unassign))
	mux.HandleFunc("POST /cards/{id}/labels/{labelID}", s.authed(s.addCardLabel))
	mux.HandleFunc("DELETE /cards/{id}/labels/{labelID}", s.authed(s.removeCardLabel))

	mux.HandleFunc("GET /boards/{id}/labels", s.authed(s.getLabels))
	mux.HandleFunc("POST /boards/{id}/labels", s.authed(s.createLabel))
	mux.HandleFunc("PUT /labels/{id}", s.authed(s.updateLabel))
	mux.HandleFunc("DELETE /labels/{id}", s.authed(s.deleteLabel))

	mux.HandleFunc("GET /cards/{id}/comments", s.authed(s.getComments))
	mux.HandleFunc("POST /cards/{id}/comments", s.authed(s.createComment))
	mux.HandleFunc("DELETE /cards/{id}/comments/{commentID}", s.authed(s.deleteComment))

	return s.middleware(mux)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request, userID string, fn op) {
	s.mu.Lock()
	res := fn(r, userID)
	s.mu.Unlock()

	writeJSON(w, res.status, res.body)

	for _, ev := range res.events {
		s.hub.emit(ev.boardID, ev.name, ev.data)
	}
}

func (s *Server) unauthed(fn op) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.run(w, r, "", fn)
	}
}

func (s *Server) authed(fn op) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.userID(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid or expired token"})

			return
		}

		s.run(w, r, userID, fn)
	}
}

// guardLocked answers 404 for unknown boards and 403 when the user's role does not allow.
func (s *Server) guardLocked(boardID, userID string, allow func(model.Role) bool) (result, bool) {
	if _, ok := s.boards[boardID]; !ok {
		return fail(http.StatusNotFound, "Board not found"), false
	}

	role := s.roleLocked(boardID, userID)
	if role == model.RoleNone {
		return fail(http.StatusForbidden, "You are not a member of this board"), false
	}

	if !allow(role) {
		return fail(http.StatusForbidden, "Insufficient permissions"), false
	}

	return result{}, true
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

func (s *Server) login(r *http.Request, _ string) result {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(r, &body) {
		return fail(http.StatusBadRequest, "Invalid request body")
	}

	a, ok := s.accountByEmailLocked(body.Email)
	if !ok || a.password != body.Password {
		return fail(http.StatusUnauthorized, "Invalid email or password")
	}

	return reply(http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   Token(a.user.ID, time.Hour),
		"user":    a.user,
	})
}

func (s *Server) signup(r *http.Request, _ string) result {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if !decode(r, &body) || body.Email == "" || body.Password == "" {
		return fail(http.StatusBadRequest, "Invalid request body")
	}

	if _, ok := s.accountByEmailLocked(body.Email); ok {
		return fail(http.StatusConflict, "Email already registered")
	}

	user := model.User{ID: uuid.NewString(), Name: body.Name, Email: body.Email, Phone: body.Phone}
	s.accounts[user.ID] = &account{user: user, password: body.Password}

	return reply(http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"token":   Token(user.ID, time.Hour),
		"user":    user,
	})
}

func (s *Server) getBoards(_ *http.Request, userID string) result {
	boards := []model.Board{}

	for _, id := range s.boardIDs {
		if s.roleLocked(id, userID) != model.RoleNone {
			boards = append(boards, s.boards[id].Clone())
		}
	}

	return reply(http.StatusOK, map[string]any{"message": "Boards retrieved", "boards": boards})
}

func (s *Server) createBoard(r *http.Request, userID string) result {
	var body struct {
		Name string `json:"name"`
	}
	if !decode(r, &body) || strings.TrimSpace(body.Name) == "" {
		return fail(http.StatusBadRequest, "Board name is required")
	}

	board := s.createBoardLocked(userID, body.Name)

	return reply(http.StatusCreated, map[string]any{"message": "Board created", "board": board})
}

func (s *Server) updateBoard(r *http.Request, userID string) result {
	boardID := r.PathValue("id")

	board, ok := s.boards[boardID]
	if !ok {
		return fail(http.StatusNotFound, "Board not found")
	}

	if board.OwnerID != userID {
		return fail(http.StatusForbidden, "Only the owner can update the board")
	}

	var body struct {
		Name string `json:"name"`
	}
	if !decode(r, &body) || strings.TrimSpace(body.Name) == "" {
		return fail(http.StatusBadRequest, "Board name is required")
	}

	s.boards[boardID].Name = body.Name

	return reply(http.StatusOK,
		map[string]any{"message": "Board updated", "board": s.boards[boardID].Clone()},
		event{boardID, "board:updated", map[string]string{"board_id": boardID}})
}

func (s *Server) deleteBoard(r *http.Request, userID string) result {
	boardID := r.PathValue("id")

	board, ok := s.boards[boardID]
	if !ok {
		return fail(http.StatusNotFound, "Board not found")
	}

	if board.OwnerID != userID {
		return fail(http.StatusForbidden, "Only the owner can delete the board")
	}

	for _, listID := range s.listIDs[boardID] {
		s.deleteListLocked(listID)
	}

	delete(s.boards, boardID)
	delete(s.listIDs, boardID)
	s.boardIDs = removeID(s.boardIDs, boardID)

	return reply(http.StatusOK, map[string]string{"message": "Board deleted"})
}

func (s *Server) getMembers(r *http.Request, userID string) result {
	boardID := r.PathValue("id")
	if res, ok := s.guardLocked(boardID, userID, canView); !ok {
		return res
	}

	board := s.boards[boardID].Clone()

	return reply(http.StatusOK, map[string]any{
		"message": "Members retrieved",
		"owner":   board.Owner,
		"members": board.Members,
	})
}

func (s *Server) invite(r *http.Request, userID string) result {
	boardID := r.PathValue("id")
	if res, ok := s.guardLocked(boardID, userID, canAdmin); !ok {
		return res
	}

	var body struct {
		Email string `json:"email"`
	}
	if !decode(r, &body) {
		return fail(http.StatusBadRequest, "Invalid request body")
	}

	a, ok := s.accountByEmailLocked(body.Email)
	if !ok {
		return fail(http.StatusNotFound, "User not found")
	}

	if s.roleLocked(boardID, a.user.ID) != model.RoleNone {
		return fail(http.StatusConflict, "User is already a member of this board")
	}

	member := model.Member{ID: uuid.NewString(), UserID: a.user.ID, Role: model.RoleViewer, User: a.user}
	board := s.boards[boardID]
	board.Members = append(board.Members, member)

	return reply(http.StatusCreated,
		map[string]any{"message": "Member invited", "member": member},
		event{boardID, "board:member_added", map[string]string{"board_id": boardID, "user_id": a.user.ID}})
}

func (s *Server) updateRole(r *http.Request, userID string) result {
	boardID, memberID := r.PathValue("id"), r.PathValue("uid")
	if res, ok := s.guardLocked(boardID, userID, canAdmin); !ok {
		return res
	}

	var body struct {
		Role model.Role `json:"role"`
	}
	if !decode(r, &body) || body.Role == model.RoleNone {
		return fail(http.StatusBadRequest, "Invalid role")
	}

	board := s.boards[boardID]
	for i := range board.Members {
		if board.Members[i].UserID == memberID {
			board.Members[i].Role = body.Role

			return reply(http.StatusOK,
				map[string]any{"message": "Role updated", "member": board.Members[i]},
				event{boardID, "board:member_role_updated", map[string]string{"board_id": boardID, "user_id": memberID}})
		}
	}

	return fail(http.StatusNotFound, "Member not found")
}

func (s *Server) removeMember(r *http.Request, userID string) result {
	boardID, memberID := r.PathValue("id"), r.PathValue("uid")
	if res, ok := s.guardLocked(boardID, userID, canAdmin); !ok {
		return res
	}

	board := s.boards[boardID]
	for i := range board.Members {
		if board.Members[i].UserID == memberID {
			board.Members = append(board.Members[:i:i], board.Members[i+1:]...)

			return reply(http.StatusOK,
				map[string]string{"message": "Member removed"},
				event{boardID, "board:member_removed", map[string]string{"board_id": boardID, "user_id": memberID}})
		}
	}

	return fail(http.StatusNotFound, "Member not found")
}

func (s *Server) getLists(r *http.Request, userID string) result {
	boardID := r.PathValue("id")
	if res, ok := s.guardLocked(boardID, userID, canView); !ok {
		return res
	}

	return reply(http.StatusOK, data("Lists retrieved", s.listsLocked(boardID)))
}

func (s *Server) createList(r *http.Request, userID string) result {
	boardID := r.PathValue("id")
	if res, ok := s.guardLocked(boardID, userID, canEdit); !ok {
		return res
	}

	var body struct {
		Title string `json:"title"`
	}
	if !decode(r, &body) || strings.TrimSpace(body.Title) == "" {
		return fail(http.StatusBadRequest, "List title is required")
	}

	list := s.createListLocked(boardID, body.Title)

	return reply(http.StatusCreated, data("List created", list),
		event{boardID, "list:created", map[string]string{"board_id": boardID, "list_id": list.ID}})
}

func (s *Server) updateList(r *http.Request, userID string) result {
	listID := r.PathValue("id")
	boardID := s.boardOfListLocked(listID)

	if boardID == "" {
		return fail(http.StatusNotFound, "List not found")
	}

	if res, ok := s.guardLocked(boardID, userID, canEdit); !ok {
		return res
	}

	var body struct {
		Title string `json:"title"`
	}
	if !decode(r, &body) || strings.TrimSpace(body.Title) == "" {
		return fail(http.StatusBadRequest, "List title is required")
	}

	s.lists[listID].Title = body.Title

	list := *s.lists[listID]
	list.Position = indexOf(s.listIDs[boardID], listID)

	return reply(http.StatusOK, data("List updated", list),
		event{boardID, "list:updated", map[string]string{"board_id": boardID, "list_id": listID}})
}

func (s *Server) deleteListLocked(listID string) {
	for _, cardID := range s.cardIDs[listID] {
		delete(s.cards, cardID)
		delete(s.commIDs, cardID)
	}

	delete(s.cardIDs, listID)
	delete(s.lists, listID)
}

func (s *Server) deleteList(r *http.Request, userID string) result {
	listID := r.PathValue("id")
	boardID := s.boardOfListLocked(listID)

	if boardID == "" {
		return fail(http.StatusNotFound, "List not found")
	}

	if res, ok := s.guardLocked(boardID, userID, canEdit); !ok {
		return res
	}

	s.deleteListLocked(listID)
	s.listIDs[boardID] = removeID(s.listIDs[boardID], listID)

	return reply(http.StatusOK, map[string]string{"message": "List deleted"},
		event{boardID, "list:deleted", map[string]string{"board_id": boardID, "list_id": listID}})
}

func (s *Server) moveList(r *http.Request, userID string) result {
	listID := r.PathValue("id")
	boardID := s.boardOfListLocked(listID)

	if boardID == "" {
		return fail(http.StatusNotFound, "List not found")
	}

	if res, ok := s.guardLocked(boardID, userID, canEdit); !ok {
		return res
	}

	var body struct {
		NewPosition int `json:"new_position"`
	}
	if !decode(r, &body) {
		return fail(http.StatusBadRequest, "Invalid request body")
	}

	s.listIDs[boardID] = insertID(removeID(s.listIDs[boardID], listID), body.NewPosition, listID)

	list := *s.lists[listID]
	list.Position = indexOf(s.listIDs[boardID], listID)

	return reply(http.StatusOK, data("List moved", list),
		event{boardID, "list:moved", map[string]string{"board_id": boardID, "list_id": listID}})
}

func (s *Server) getCards(r *http.Request, userID string) result {
	listID := r.PathValue("id")
	boardID := s.boardOfListLocked(listID)

	if boardID == "" {
		return fail(http.StatusNotFound, "List not found")
	}

	if res, ok := s.guardLocked(boardID, userID, canView); !ok {
		return res
	}

	return reply(http.StatusOK, data("Cards retrieved", s.cardsLocked(listID)))
}

func (s *Server) createCard(r *http.Request, userID string) result {
	listID := r.PathValue("id")
	boardID := s.boardOfListLocked(listID)

	if boardID == "" {
		return fail(http.StatusNotFound, "List not found")
	}

	if res, ok := s.guardLocked(boardID, userID, canEdit); !ok {
		return res
	}

	var body struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		DueDate     *time.Time `json:"due_date"`
	}
	if !decode(r, &body) || strings.TrimSpace(body.Title) == "" {
		return fail(http.StatusBadRequest, "Card title is required")
	}

	card := s.createCardLocked(listID, model.Card{Title: body.Title, Description: body.Description, DueDate: body.DueDate})

	return reply(http.StatusCreated, data("Card created", card),
		event{boardID, "card:created", map[string]string{"board_id": boardID, "list_id": listID, "card_id": card.ID}})
}

// cardGuardLocked resolves the card's board and checks the role.
func (s *Server) cardGuardLocked(cardID, userID string, allow func(model.Role) bool) (string, result, bool) {
	boardID := s.boardOfCardLocked(cardID)
	if boardID == "" {
		return "", fail(http.StatusNotFound, "Card not found"), false
	}

	res, ok := s.guardLocked(boardID, userID, allow)

	return boardID, res, ok
}

func (s *Server) cardEvent(boardID, name string, card *model.Card, extra ...string) event {
	payload := map[string]string{"board_id": boardID, "list_id": card.ListID, "card_id": card.ID}

	for i := 0; i+1 < len(extra); i += 2 {
		payload[extra[i]] = extra[i+1]
	}

	return event{boardID, name, payload}
}

func (s *Server) updateCard(r *http.Request, userID string) result {
	cardID := r.PathValue("id")

	boardID, res, ok := s.cardGuardLocked(cardID, userID, canEdit)
	if !ok {
		return res
	}

	var body struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		DueDate     *time.Time `json:"due_date"`
	}
	if !decode(r, &body) {
		return fail(http.StatusBadRequest, "Invalid request body")
	}

	card := s.cards[cardID]

	if body.Title != nil {
		if strings.TrimSpace(*body.Title) == "" {
			return fail(http.StatusBadRequest, "Card title is required")
		}

		card.Title = *body.Title
	}

	if body.Description != nil {
		card.Description = *body.Description
	}

	if body.DueDate != nil {
		due := *body.DueDate
		card.DueDate = &due
	}

	out, _ := s.cardLocked(cardID)

	return reply(http.StatusOK, data("Card updated", out), s.cardEvent(boardID, "card:updated", card))
}

func (s *Server) deleteCard(r *http.Request, userID string) result {
	cardID := r.PathValue("id")

	boardID, res, ok := s.cardGuardLocked(cardID, userID, canEdit)
	if !ok {
		return res
	}

	card := s.cards[cardID]
	ev := s.cardEvent(boardID, "card:deleted", card)

	s.cardIDs[card.ListID] = removeID(s.cardIDs[card.ListID], cardID)
	delete(s.cards, cardID)
	delete(s.commIDs, cardID)

	return reply(http.StatusOK, map[string]string{"message": "Card deleted"}, ev)
}

func (s *Server) moveCard(r *http.Request, userID string) result {
	cardID := r.PathValue("id")

	boardID, res, ok := s.cardGuardLocked(cardID, userID, canEdit)
	if !ok {
		return res
	}

	var body struct {
		NewListID   string `json:"new_list_id"`
		NewPosition int    `json:"new_position"`
	}
	if !decode(r, &body) {
		return fail(http.StatusBadRequest, "Invalid request body")
	}

	if s.boardOfListLocked(body.NewListID) != boardID {
		return fail(http.StatusBadRequest, "Target list is not on this board")
	}

	card := s.cards[cardID]
	oldListID := card.ListID

	s.cardIDs[oldListID] = removeID(s.cardIDs[oldListID], cardID)
	s.cardIDs[body.NewListID] = insertID(s.cardIDs[body.NewListID], body.NewPosition, cardID)
	card.ListID = body.NewListID

	out, _ := s.cardLocked(cardID)

	return reply(http.StatusOK, data("Card moved", out),
		event{boardID, "card:moved", map[string]string{
			"board_id":    boardID,
			"card_id":     cardID,
			"old_list_id": oldListID,
			"new_list_id": body.NewListID,
		}})
}

func (s *Server) assign(r *http.Request, userID string) result {
	cardID := r.PathValue("id")

	boardID, res, ok := s.cardGuardLocked(cardID, userID, canEdit)
	if !ok {
		return res
	}

	var body struct {
		UserID string `json:"user_id"`
	}
	if !decode(r, &body) {
		return fail(http.StatusBadRequest, "Invalid request body")
	}

	if s.roleLocked(boardID, body.UserID) == model.RoleNone {
		return fail(http.StatusBadRequest, "User is not a member of this board")
	}

	card := s.cards[cardID]
	if card.HasAssignee(body.UserID) {
		return fail(http.StatusConflict, "User already assigned")
	}

	assignee := model.CardAssignee{
		ID:     uuid.NewString(),
		CardID: cardID,
		UserID: body.UserID,
		User:   s.accounts[body.UserID].user,
	}
	card.Assignees = append(card.Assignees, assignee)

	return reply(http.StatusCreated, data("User assigned", assignee),
		s.cardEvent(boardID, "card:assignee_added", card, "user_id", body.UserID))
}

func (s *Server) unassign(r *http.Request, userID string) result {
	cardID, assigneeID := r.PathValue("id"), r.PathValue("uid")

	boardID, res, ok := s.cardGuardLocked(cardID, userID, canEdit)
	if !ok {
		return res
	}

	card := s.cards[cardID]
	for i, a := range card.Assignees {
		if a.UserID == assigneeID {
			card.Assignees = append(card.Assignees[:i:i], card.Assignees[i+1:]...)

			return reply(http.StatusOK, map[string]string{"message": "User unassigned"},
				s.cardEvent(boardID, "card:assignee_removed", card, "user_id", assigneeID))
		}
	}

	return fail(http.StatusNotFound, "Assignment not found")
}

func (s *Server) addCardLabel(r *http.Request, userID string) result {
	cardID, labelID := r.PathValue("id"), r.PathValue("labelID")

	boardID, res, ok := s.cardGuardLocked(cardID, userID, canEdit)
	if !ok {
		return res
	}

	label, ok := s.labels[labelID]
	if !ok || label.BoardID != boardID {
		return fail(http.StatusNotFound, "Label not found")
	}

	card := s.cards[cardID]
	if card.HasLabel(labelID) {
		return fail(http.StatusConflict, "Label already added to card")
	}

	cl := model.CardLabel{ID: uuid.NewString(), CardID: cardID, LabelID: labelID, Label: *label}
	card.Labels = append(card.Labels, cl)

	return reply(http.StatusCreated, data("Label added", cl),
		s.cardEvent(boardID, "card:label_added", card, "label_id", labelID))
}

func (s *Server) removeCardLabel(r *http.Request, userID string) result {
	cardID, labelID := r.PathValue("id"), r.PathValue("labelID")

	boardID, res, ok := s.cardGuardLocked(cardID, userID, canEdit)
	if !ok {
		return res
	}

	card := s.cards[cardID]
	for i, l := range card.Labels {
		if l.LabelID == labelID {
			card.Labels = append(card.Labels[:i:i], card.Labels[i+1:]...)

			return reply(http.StatusOK, map[string]string{"message": "Label removed"},
				s.cardEvent(boardID, "card:label_removed", card, "label_id", labelID))
		}
	}

	return fail(http.StatusNotFound, "Label not on card")
}

func (s *Server) getLabels(r *http.Request, userID string) result {
	boardID := r.PathValue("id")
	if res, ok := s.guardLocked(boardID, userID, canView); !ok {
		return res
	}

	return reply(http.StatusOK, data("Labels retrieved", s.labelsLocked(boardID)))
}

func (s *Server) createLabel(r *http.Request, userID string) result {
	boardID := r.PathValue("id")
	if res, ok := s.guardLocked(boardID, userID, canEdit); !ok {
		return res
	}

	var body struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if !decode(r, &body) || strings.TrimSpace(body.Name) == "" {
		return fail(http.StatusBadRequest, "Label name is required")
	}

	if !model.IsPaletteColor(body.Color) {
		return fail(http.StatusBadRequest, "Invalid label color")
	}

	return reply(http.StatusCreated, data("Label created", s.createLabelLocked(boardID, body.Name, body.Color)))
}

func (s *Server) updateLabel(r *http.Request, userID string) result {
	labelID := r.PathValue("id")

	label, ok := s.labels[labelID]
	if !ok {
		return fail(http.StatusNotFound, "Label not found")
	}

	if res, ok := s.guardLocked(label.BoardID, userID, canEdit); !ok {
		return res
	}

	var body struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if !decode(r, &body) {
		return fail(http.StatusBadRequest, "Invalid request body")
	}

	if body.Color != "" && !model.IsPaletteColor(body.Color) {
		return fail(http.StatusBadRequest, "Invalid label color")
	}

	if body.Name != "" {
		label.Name = body.Name
	}

	if body.Color != "" {
		label.Color = body.Color
	}

	for _, card := range s.cards {
		for i := range card.Labels {
			if card.Labels[i].LabelID == labelID {
				card.Labels[i].Label = *label
			}
		}
	}

	return reply(http.StatusOK, data("Label updated", *label))
}

func (s *Server) deleteLabel(r *http.Request, userID string) result {
	labelID := r.PathValue("id")

	label, ok := s.labels[labelID]
	if !ok {
		return fail(http.StatusNotFound, "Label not found")
	}

	if res, ok := s.guardLocked(label.BoardID, userID, canEdit); !ok {
		return res
	}

	for _, card := range s.cards {
		kept := card.Labels[:0:0]

		for _, l := range card.Labels {
			if l.LabelID != labelID {
				kept = append(kept, l)
			}
		}

		card.Labels = kept
	}

	s.labelIDs[label.BoardID] = removeID(s.labelIDs[label.BoardID], labelID)
	delete(s.labels, labelID)

	return reply(http.StatusOK, map[string]string{"message": "Label deleted"})
}

func (s *Server) getComments(r *http.Request, userID string) result {
	cardID := r.PathValue("id")

	if _, res, ok := s.cardGuardLocked(cardID, userID, canView); !ok {
		return res
	}

	return reply(http.StatusOK, data("Comments retrieved", s.commentsLocked(cardID)))
}

func (s *Server) createComment(r *http.Request, userID string) result {
	cardID := r.PathValue("id")

	boardID, res, ok := s.cardGuardLocked(cardID, userID, canView)
	if !ok {
		return res
	}

	var body struct {
		Content string `json:"content"`
	}
	if !decode(r, &body) || strings.TrimSpace(body.Content) == "" {
		return fail(http.StatusBadRequest, "Comment content is required")
	}

	comment := s.createCommentLocked(cardID, userID, body.Content)

	return reply(http.StatusCreated, data("Comment created", comment),
		s.cardEvent(boardID, "comment:created", s.cards[cardID], "comment_id", comment.ID))
}

func (s *Server) deleteComment(r *http.Request, userID string) result {
	cardID, commentID := r.PathValue("id"), r.PathValue("commentID")

	boardID, res, ok := s.cardGuardLocked(cardID, userID, canView)
	if !ok {
		return res
	}

	comment, ok := s.comments[commentID]
	if !ok || comment.CardID != cardID {
		return fail(http.StatusNotFound, "Comment not found")
	}

	if comment.UserID != userID && !canEdit(s.roleLocked(boardID, userID)) {
		return fail(http.StatusForbidden, "You can only delete your own comments")
	}

	s.commIDs[cardID] = removeID(s.commIDs[cardID], commentID)
	delete(s.comments, commentID)

	return reply(http.StatusOK, map[string]string{"message": "Comment deleted"},
		s.cardEvent(boardID, "comment:deleted", s.cards[cardID], "comment_id", commentID))
}
