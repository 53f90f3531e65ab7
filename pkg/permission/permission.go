// Package permission derives a user's role on a board and the actions that role allows.
// Every function here is pure: no side effects, no network calls.
package permission

import "github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"

// Action is a gated user action.
type Action int

// These constants refer to the actions the gate knows about.
const (
	ActionView Action = iota
	ActionComment
	ActionEdit
	ActionDelete
	ActionManageMembers
	ActionDeleteBoard
	ActionRenameBoard
)

func (a Action) String() string {
	switch a {
	case ActionView:
		return "view"
	case ActionComment:
		return "comment"
	case ActionEdit:
		return "edit"
	case ActionDelete:
		return "delete"
	case ActionManageMembers:
		return "manage_members"
	case ActionDeleteBoard:
		return "delete_board"
	case ActionRenameBoard:
		return "rename_board"
	}

	return "unknown"
}

// RoleFor returns the user's role on the board. The owner is always admin; anyone who is
// neither owner nor member has no role.
func RoleFor(board *model.Board, userID string) model.Role {
	if board == nil || userID == "" {
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

// CanEdit covers creating and updating lists, cards and labels.
func CanEdit(board *model.Board, userID string) bool {
	role := RoleFor(board, userID)

	return role == model.RoleAdmin || role == model.RoleEditor
}

// CanDelete covers deleting lists, cards and labels.
func CanDelete(board *model.Board, userID string) bool {
	return CanEdit(board, userID)
}

// CanManageMembers covers inviting members, changing roles and removing members.
func CanManageMembers(board *model.Board, userID string) bool {
	return RoleFor(board, userID) == model.RoleAdmin
}

// CanDeleteBoard is reserved to the owner.
func CanDeleteBoard(board *model.Board, userID string) bool {
	if board == nil || userID == "" {
		return false
	}

	return board.OwnerID == userID
}

// CanRenameBoard is reserved to the owner, like deleting it.
func CanRenameBoard(board *model.Board, userID string) bool {
	return CanDeleteBoard(board, userID)
}

func CanView(board *model.Board, userID string) bool {
	return RoleFor(board, userID) != model.RoleNone
}

func CanComment(board *model.Board, userID string) bool {
	return RoleFor(board, userID) != model.RoleNone
}

// Allowed maps an action to its predicate.
func Allowed(board *model.Board, userID string, action Action) bool {
	switch action {
	case ActionView:
		return CanView(board, userID)
	case ActionComment:
		return CanComment(board, userID)
	case ActionEdit:
		return CanEdit(board, userID)
	case ActionDelete:
		return CanDelete(board, userID)
	case ActionManageMembers:
		return CanManageMembers(board, userID)
	case ActionDeleteBoard:
		return CanDeleteBoard(board, userID)
	case ActionRenameBoard:
		return CanRenameBoard(board, userID)
	}

	return false
}

// Capabilities is the full capability set of one user on one board.
type Capabilities struct {
	Role             model.Role
	IsOwner          bool
	CanView          bool
	CanComment       bool
	CanEdit          bool
	CanDelete        bool
	CanManageMembers bool
	CanDeleteBoard   bool
}

// For computes the capability set of the user on the board.
func For(board *model.Board, userID string) Capabilities {
	return Capabilities{
		Role:             RoleFor(board, userID),
		IsOwner:          board != nil && userID != "" && board.OwnerID == userID,
		CanView:          CanView(board, userID),
		CanComment:       CanComment(board, userID),
		CanEdit:          CanEdit(board, userID),
		CanDelete:        CanDelete(board, userID),
		CanManageMembers: CanManageMembers(board, userID),
		CanDeleteBoard:   CanDeleteBoard(board, userID),
	}
}
