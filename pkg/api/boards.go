package api

import (
	"context"
	"net/http"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
)

type boardsBody struct {
	Message string        `json:"message"`
	Boards  []model.Board `json:"boards"`
}

type boardBody struct {
	Message string      `json:"message"`
	Board   model.Board `json:"board"`
}

type memberBody struct {
	Message string       `json:"message"`
	Member  model.Member `json:"member"`
}

type membersBody struct {
	Message string         `json:"message"`
	Owner   model.User     `json:"owner"`
	Members []model.Member `json:"members"`
}

type nameBody struct {
	Name string `json:"name"`
}

// Boards lists the boards the user owns or is a member of.
func (c *Client) Boards(ctx context.Context) ([]model.Board, error) {
	var body boardsBody
	if err := c.do(ctx, http.MethodGet, "/boards", nil, &body); err != nil {
		return nil, err
	}

	return body.Boards, nil
}

func (c *Client) CreateBoard(ctx context.Context, name string) (model.Board, error) {
	var body boardBody
	err := c.do(ctx, http.MethodPost, "/boards", nameBody{Name: name}, &body)

	return body.Board, err
}

func (c *Client) UpdateBoard(ctx context.Context, boardID, name string) (model.Board, error) {
	var body boardBody
	err := c.do(ctx, http.MethodPut, pathf("/boards/%s", boardID), nameBody{Name: name}, &body)

	return body.Board, err
}

func (c *Client) DeleteBoard(ctx context.Context, boardID string) error {
	return c.do(ctx, http.MethodDelete, pathf("/boards/%s", boardID), nil, nil)
}

// BoardMembers returns the owner and the members of the board.
func (c *Client) BoardMembers(ctx context.Context, boardID string) (model.BoardMembers, error) {
	var body membersBody
	if err := c.do(ctx, http.MethodGet, pathf("/boards/%s/members", boardID), nil, &body); err != nil {
		return model.BoardMembers{}, err
	}

	return model.BoardMembers{Owner: body.Owner, Members: body.Members}, nil
}

// InviteMember adds the user with the given email to the board.
func (c *Client) InviteMember(ctx context.Context, boardID, email string) (model.Member, error) {
	var body memberBody
	err := c.do(ctx, http.MethodPost, pathf("/boards/%s/invite", boardID), map[string]string{"email": email}, &body)

	return body.Member, err
}

func (c *Client) UpdateMemberRole(ctx context.Context, boardID, userID string, role model.Role) (model.Member, error) {
	payload := struct {
		Role model.Role `json:"role"`
	}{Role: role}

	var body memberBody
	err := c.do(ctx, http.MethodPut, pathf("/boards/%s/members/%s/role", boardID, userID), payload, &body)

	return body.Member, err
}

func (c *Client) RemoveMember(ctx context.Context, boardID, userID string) error {
	return c.do(ctx, http.MethodDelete, pathf("/boards/%s/members/%s", boardID, userID), nil, nil)
}
