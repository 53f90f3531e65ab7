package api

import (
	"context"
	"net/http"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
)

// Comments returns the card's comments, oldest first.
func (c *Client) Comments(ctx context.Context, cardID string) ([]model.Comment, error) {
	return getData[[]model.Comment](ctx, c, pathf("/cards/%s/comments", cardID))
}

func (c *Client) CreateComment(ctx context.Context, cardID, content string) (model.Comment, error) {
	return sendData[model.Comment](ctx, c, http.MethodPost, pathf("/cards/%s/comments", cardID),
		map[string]string{"content": content})
}

func (c *Client) DeleteComment(ctx context.Context, cardID, commentID string) error {
	return c.do(ctx, http.MethodDelete, pathf("/cards/%s/comments/%s", cardID, commentID), nil, nil)
}
