package api

import (
	"context"
	"net/http"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
)

// Lists returns the board's lists ordered by position.
func (c *Client) Lists(ctx context.Context, boardID string) ([]model.List, error) {
	return getData[[]model.List](ctx, c, pathf("/boards/%s/lists", boardID))
}

func (c *Client) CreateList(ctx context.Context, boardID, title string) (model.List, error) {
	return sendData[model.List](ctx, c, http.MethodPost, pathf("/boards/%s/lists", boardID),
		map[string]string{"title": title})
}

func (c *Client) UpdateList(ctx context.Context, listID, title string) (model.List, error) {
	return sendData[model.List](ctx, c, http.MethodPut, pathf("/lists/%s", listID),
		map[string]string{"title": title})
}

func (c *Client) DeleteList(ctx context.Context, listID string) error {
	return c.do(ctx, http.MethodDelete, pathf("/lists/%s", listID), nil, nil)
}

// MoveList sends only the semantic move; the server assigns canonical positions.
func (c *Client) MoveList(ctx context.Context, listID string, newPosition int) (model.List, error) {
	return sendData[model.List](ctx, c, http.MethodPut, pathf("/lists/%s/move", listID),
		map[string]int{"new_position": newPosition})
}
