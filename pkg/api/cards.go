package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
)

// CardInput is the payload of a new card.
type CardInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// CardPatch holds the fields of a card update; nil fields are left unchanged.
type CardPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type moveCardBody struct {
	NewListID   string `json:"new_list_id"`
	NewPosition int    `json:"new_position"`
}

// Cards returns the list's cards ordered by position.
func (c *Client) Cards(ctx context.Context, listID string) ([]model.Card, error) {
	return getData[[]model.Card](ctx, c, pathf("/lists/%s/cards", listID))
}

func (c *Client) CreateCard(ctx context.Context, listID string, in CardInput) (model.Card, error) {
	return sendData[model.Card](ctx, c, http.MethodPost, pathf("/lists/%s/cards", listID), in)
}

func (c *Client) UpdateCard(ctx context.Context, cardID string, patch CardPatch) (model.Card, error) {
	return sendData[model.Card](ctx, c, http.MethodPut, pathf("/cards/%s", cardID), patch)
}

func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	return c.do(ctx, http.MethodDelete, pathf("/cards/%s", cardID), nil, nil)
}

// MoveCard sends only the semantic move (target list and index); the server renumbers.
func (c *Client) MoveCard(ctx context.Context, cardID, newListID string, newPosition int) (model.Card, error) {
	return sendData[model.Card](ctx, c, http.MethodPut, pathf("/cards/%s/move", cardID),
		moveCardBody{NewListID: newListID, NewPosition: newPosition})
}

func (c *Client) AssignUser(ctx context.Context, cardID, userID string) (model.CardAssignee, error) {
	return sendData[model.CardAssignee](ctx, c, http.MethodPost, pathf("/cards/%s/assign", cardID),
		map[string]string{"user_id": userID})
}

func (c *Client) UnassignUser(ctx context.Context, cardID, userID string) error {
	return c.do(ctx, http.MethodDelete, pathf("/cards/%s/assign/%s", cardID, userID), nil, nil)
}
