package api

import (
	"context"
	"net/http"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
)

type labelBody struct {
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

func (c *Client) Labels(ctx context.Context, boardID string) ([]model.Label, error) {
	return getData[[]model.Label](ctx, c, pathf("/boards/%s/labels", boardID))
}

func (c *Client) CreateLabel(ctx context.Context, boardID, name, color string) (model.Label, error) {
	return sendData[model.Label](ctx, c, http.MethodPost, pathf("/boards/%s/labels", boardID),
		labelBody{Name: name, Color: color})
}

func (c *Client) UpdateLabel(ctx context.Context, labelID, name, color string) (model.Label, error) {
	return sendData[model.Label](ctx, c, http.MethodPut, pathf("/labels/%s", labelID),
		labelBody{Name: name, Color: color})
}

func (c *Client) DeleteLabel(ctx context.Context, labelID string) error {
	return c.do(ctx, http.MethodDelete, pathf("/labels/%s", labelID), nil, nil)
}

func (c *Client) AddCardLabel(ctx context.Context, cardID, labelID string) (model.CardLabel, error) {
	return sendData[model.CardLabel](ctx, c, http.MethodPost, pathf("/cards/%s/labels/%s", cardID, labelID), nil)
}

func (c *Client) RemoveCardLabel(ctx context.Context, cardID, labelID string) error {
	return c.do(ctx, http.MethodDelete, pathf("/cards/%s/labels/%s", cardID, labelID), nil, nil)
}
