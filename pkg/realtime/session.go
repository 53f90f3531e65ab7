package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/push"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const cardFetchLimit = 8

// Joiner is the part of the push connection a session drives.
type Joiner interface {
	JoinBoard(boardID string) error
	LeaveBoard(boardID string) error
}

// Session keeps the cache in sync with the one board the user has open.
type Session struct {
	cache  *cache.Cache
	router Subscriber
	conn   Joiner

	mu     sync.Mutex
	board  string
	unbind func()
}

func NewSession(c *cache.Cache, router Subscriber, conn Joiner) *Session {
	return &Session{cache: c, router: router, conn: conn}
}

// Board returns the open board id, or "".
func (s *Session) Board() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.board
}

func (s *Session) accept(ev push.Event) bool {
	return ev.Payload.BoardID == s.Board()
}

// Open switches to boardID: the previous board's collections are evicted, its room is left,
// and the new board is joined and loaded.
func (s *Session) Open(ctx context.Context, boardID string) error {
	s.mu.Lock()
	prev := s.board
	s.board = boardID

	if s.unbind == nil {
		s.unbind = Bind(s.router, s.cache, s.accept)
	}
	s.mu.Unlock()

	if prev != "" && prev != boardID {
		s.evictBoard()

		if err := s.conn.LeaveBoard(prev); err != nil {
			log.Warn().Err(err).Str("board", prev).Msg("error leaving board")
		}
	}

	if err := s.conn.JoinBoard(boardID); err != nil {
		log.Warn().Err(err).Str("board", boardID).Msg("error joining board, events resume on reconnect")
	}

	return s.Load(ctx)
}

// Load fetches the open board's lists, labels and members, then the cards of every list.
func (s *Session) Load(ctx context.Context) error {
	boardID := s.Board()
	if boardID == "" {
		return nil
	}

	var lists []model.List

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := s.cache.Fetch(gctx, cache.Lists(boardID))
		if err != nil {
			return err
		}

		lists, _ = v.([]model.List)

		return nil
	})
	g.Go(func() error {
		_, err := s.cache.Fetch(gctx, cache.Labels(boardID))
		return err
	})
	g.Go(func() error {
		_, err := s.cache.Fetch(gctx, cache.Members(boardID))
		return err
	})
	g.Go(func() error {
		_, err := s.cache.Fetch(gctx, cache.Boards())
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("error loading board %s: %w", boardID, err)
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(cardFetchLimit)

	for _, list := range lists {
		key := cache.Cards(list.ID)

		g.Go(func() error {
			_, err := s.cache.Fetch(gctx, key)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("error loading cards of board %s: %w", boardID, err)
	}

	log.Debug().Str("board", boardID).Int("lists", len(lists)).Msg("board loaded")

	return nil
}

// Refresh marks every cached collection stale.
func (s *Session) Refresh() {
	s.cache.InvalidateWhere(func(cache.Key) bool { return true })
}

// Close leaves the open board and stops applying events.
func (s *Session) Close() {
	s.mu.Lock()
	prev := s.board
	s.board = ""
	unbind := s.unbind
	s.unbind = nil
	s.mu.Unlock()

	if unbind != nil {
		unbind()
	}

	if prev == "" {
		return
	}

	s.evictBoard()

	if err := s.conn.LeaveBoard(prev); err != nil {
		log.Warn().Err(err).Str("board", prev).Msg("error leaving board")
	}
}

func (s *Session) evictBoard() {
	s.cache.EvictWhere(func(k cache.Key) bool { return k.Kind != cache.KindBoards })
}
