package apitest

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

type frame struct {
	Event string            `json:"event"`
	Data  map[string]string `json:"data"`
}

type client struct {
	ws     *websocket.Conn
	writeM sync.Mutex
	boards map[string]bool
}

func (c *client) send(f frame) {
	c.writeM.Lock()
	defer c.writeM.Unlock()

	if err := c.ws.WriteJSON(f); err != nil {
		log.Debug().Err(err).Msg("apitest push write failed")
	}
}

// hub tracks push clients and the boards each has joined.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub() *hub {
	return &hub{clients: map[*client]struct{}{}}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

func (h *hub) joined(boardID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0

	for c := range h.clients {
		if c.boards[boardID] {
			n++
		}
	}

	return n
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		_ = c.ws.Close()
		delete(h.clients, c)
	}
}

func (h *hub) emit(boardID, name string, data map[string]string) {
	h.mu.Lock()

	var targets []*client

	for c := range h.clients {
		if c.boards[boardID] {
			targets = append(targets, c)
		}
	}

	h.mu.Unlock()

	for _, c := range targets {
		c.send(frame{Event: name, Data: data})
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.userID(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid or expired token"})

		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{ws: ws, boards: map[string]bool{}}

	s.hub.mu.Lock()
	s.hub.clients[c] = struct{}{}
	s.hub.mu.Unlock()

	defer func() {
		s.hub.mu.Lock()
		delete(s.hub.clients, c)
		s.hub.mu.Unlock()

		_ = ws.Close()
	}()

	for {
		var f frame
		if err := ws.ReadJSON(&f); err != nil {
			return
		}

		boardID := f.Data["board_id"]

		s.hub.mu.Lock()
		switch f.Event {
		case "join_board":
			c.boards[boardID] = true
		case "leave_board":
			delete(c.boards, boardID)
		}
		s.hub.mu.Unlock()
	}
}
