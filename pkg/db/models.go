package db

import (
	"time"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
)

// Session is the signed in user as persisted between runs. There is at most one.
type Session struct {
	Token string
	User  model.User
	// SavedDatetime is set by SaveSession.
	SavedDatetime *time.Time
}
