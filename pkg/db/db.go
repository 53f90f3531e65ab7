package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/api"
	"github.com/rs/zerolog/log"

	// use the sqlite db driver.
	_ "github.com/mattn/go-sqlite3"
)

//go:embed base.sql
var baseSQL string

var (
	// ErrNoSession is returned by LoadSession when nobody is signed in.
	ErrNoSession = errors.New("no saved session")
	// ErrSessionExpired is returned by LoadSession when the saved token has expired. The
	// session is cleared before it is returned.
	ErrSessionExpired = errors.New("saved session has expired")
)

// Database manages the db connection holding the client's persisted state.
type Database struct {
	conn *sql.DB
	now  func() time.Time
}

// NewDatabase connects to the sqlite database at the given filename and initializes the
// structure if not present.
func NewDatabase(ctx context.Context, filename string) (*Database, error) {
	conn, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("error connecting to sqlite db at %s: %w", filename, err)
	}

	database := Database{
		conn: conn,
		now:  time.Now,
	}

	err = database.initialize(ctx)
	if err != nil {
		conn.Close()

		return nil, err
	}

	return &database, nil
}

func (d *Database) initialize(ctx context.Context) error {
	// run idempotent setup sql to create empty tables if they don't exist
	if _, err := d.conn.ExecContext(ctx, baseSQL); err != nil {
		return fmt.Errorf("error running base sql: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.conn.Close()
}

// SaveSession replaces the persisted session. The token must carry the user's id.
func (d *Database) SaveSession(ctx context.Context, session Session) error {
	claims, err := api.ParseTokenUnverified(session.Token)
	if err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}

	if session.User.ID == "" {
		session.User.ID = claims.UserID
	}

	if claims.UserID != session.User.ID {
		return fmt.Errorf("error saving session: token belongs to %s, not %s", claims.UserID, session.User.ID)
	}

	now := d.now().UTC()

	_, err = d.conn.ExecContext(ctx,
		`INSERT INTO session (id, token, user_id, name, email, phone, saved_datetime)
		     VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
		     token = excluded.token,
		     user_id = excluded.user_id,
		     name = excluded.name,
		     email = excluded.email,
		     phone = excluded.phone,
		     saved_datetime = excluded.saved_datetime`,
		session.Token, session.User.ID, session.User.Name, session.User.Email, session.User.Phone, now,
	)
	if err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}

	log.Info().Str("user", session.User.ID).Msg("session saved")

	return nil
}

// LoadSession returns the persisted session.
func (d *Database) LoadSession(ctx context.Context) (Session, error) {
	var (
		session Session
		saved   time.Time
	)

	row := d.conn.QueryRowContext(ctx,
		`SELECT token, user_id, name, email, phone, saved_datetime FROM session WHERE id = 1`)

	err := row.Scan(&session.Token, &session.User.ID, &session.User.Name, &session.User.Email,
		&session.User.Phone, &saved)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNoSession
	}

	if err != nil {
		return Session{}, fmt.Errorf("error loading session: %w", err)
	}

	session.SavedDatetime = &saved

	claims, err := api.ParseTokenUnverified(session.Token)
	if err != nil || claims.Expired(d.now()) {
		log.Info().Str("user", session.User.ID).Msg("discarding expired session")

		if err := d.ClearSession(ctx); err != nil {
			return Session{}, err
		}

		return Session{}, ErrSessionExpired
	}

	return session, nil
}

// ClearSession forgets the signed in user. Clearing without a session is not an error.
func (d *Database) ClearSession(ctx context.Context) error {
	if _, err := d.conn.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("error clearing session: %w", err)
	}

	return nil
}
