package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is a member's capability level on a board. Roles are kept lowercase internally; the
// server speaks uppercase and the conversion happens in MarshalJSON/UnmarshalJSON.
type Role string

// These constants refer to the roles supported by the app.
const (
	RoleNone   Role = ""
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ParseRole accepts any casing of a known role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return r, nil
	}

	return RoleNone, fmt.Errorf("unknown role '%s'", s)
}

// Wire returns the role as the server spells it.
func (r Role) Wire() string {
	return strings.ToUpper(string(r))
}

func (r Role) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.Wire() + `"`), nil
}

func (r *Role) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*r = RoleNone

		return nil
	}

	role, err := ParseRole(s)
	if err != nil {
		return err
	}

	*r = role

	return nil
}

// User is the public profile of an account.
type User struct {
	ID    string `json:"user_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Member ties a user to a board with a role. The owner is never listed as a member.
type Member struct {
	ID     string `json:"member_id"`
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	User   User   `json:"user"`
}

// Board is the top level workspace.
type Board struct {
	ID      string   `json:"board_id"`
	Name    string   `json:"name"`
	OwnerID string   `json:"owner_id"`
	Owner   User     `json:"owner"`
	Members []Member `json:"members"`
}

// BoardMembers is the member roster of one board, as returned by the members endpoint.
type BoardMembers struct {
	Owner   User     `json:"owner"`
	Members []Member `json:"members"`
}

// List is an ordered column of cards. Position is dense and zero based within a board.
type List struct {
	ID       string `json:"list_id"`
	BoardID  string `json:"board_id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// Card is the unit of work within a list.
type Card struct {
	ID          string     `json:"card_id"`
	ListID      string     `json:"list_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	// Position is maintained within each list. It starts at 0 and increments by 1.
	Position  int            `json:"position"`
	Labels    []CardLabel    `json:"labels"`
	Assignees []CardAssignee `json:"assignees"`
}

// HasAssignee reports whether the user is assigned to the card.
func (c *Card) HasAssignee(userID string) bool {
	for _, a := range c.Assignees {
		if a.UserID == userID {
			return true
		}
	}

	return false
}

// HasLabel reports whether the label is attached to the card.
func (c *Card) HasLabel(labelID string) bool {
	for _, l := range c.Labels {
		if l.LabelID == labelID {
			return true
		}
	}

	return false
}

// Label can be applied to the cards of its board.
type Label struct {
	ID      string `json:"label_id"`
	BoardID string `json:"board_id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
}

// CardLabel joins a card and a label; unique per pair.
type CardLabel struct {
	ID      string `json:"id"`
	CardID  string `json:"card_id"`
	LabelID string `json:"label_id"`
	Label   Label  `json:"label"`
}

// CardAssignee joins a card and a user; unique per pair.
type CardAssignee struct {
	ID     string `json:"id"`
	CardID string `json:"card_id"`
	UserID string `json:"user_id"`
	User   User   `json:"user"`
}

// Comment is immutable once created.
type Comment struct {
	ID        string    `json:"comment_id"`
	CardID    string    `json:"card_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `json:"user"`
}
