// Package apitest runs an in-memory Kanban server for tests: the REST endpoints the client
// calls, a websocket push channel that emits board events after every mutation, and knobs
// to fail or hold requests.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var secret = []byte("apitest-secret")

type account struct {
	user     model.User
	password string
}

type failure struct {
	method string
	path   string
	status int
	times  int
}

// Server is a fake Kanban backend.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*account
	boards   map[string]*model.Board
	boardIDs []string
	lists    map[string]*model.List
	listIDs  map[string][]string
	cards    map[string]*model.Card
	cardIDs  map[string][]string
	labels   map[string]*model.Label
	labelIDs map[string][]string
	comments map[string]*model.Comment
	commIDs  map[string][]string

	failures []*failure
	held     chan struct{}
	requests []string

	hub *hub
}

// NewServer starts a fake server; it is closed when the test ends.
func NewServer(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		accounts: map[string]*account{},
		boards:   map[string]*model.Board{},
		lists:    map[string]*model.List{},
		listIDs:  map[string][]string{},
		cards:    map[string]*model.Card{},
		cardIDs:  map[string][]string{},
		labels:   map[string]*model.Label{},
		labelIDs: map[string][]string{},
		comments: map[string]*model.Comment{},
		commIDs:  map[string][]string{},
		hub:      newHub(),
	}

	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)

	return s
}

// Close stops push connections and the http server.
func (s *Server) Close() {
	s.hub.closeAll()
	s.Server.Close()
}

// APIURL is the REST base url.
func (s *Server) APIURL() string {
	return s.URL
}

// WSURL is the push channel url.
func (s *Server) WSURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

// Token signs a bearer token for the user.
func Token(userID string, ttl time.Duration) string {
	claims := gojwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(ttl).Unix(),
	}

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		panic(err)
	}

	return token
}

// AddUser registers an account and returns it with a valid token.
func (s *Server) AddUser(name, email string) (model.User, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := model.User{ID: uuid.NewString(), Name: name, Email: email}
	s.accounts[user.ID] = &account{user: user, password: "password123"}

	return user, Token(user.ID, time.Hour)
}

// AddBoard creates a board owned by the user.
func (s *Server) AddBoard(ownerID, name string) model.Board {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createBoardLocked(ownerID, name)
}

// AddMember gives the user a role on the board.
func (s *Server) AddMember(boardID, userID string, role model.Role) model.Member {
	s.mu.Lock()
	defer s.mu.Unlock()

	board := s.boards[boardID]
	member := model.Member{
		ID:     uuid.NewString(),
		UserID: userID,
		Role:   role,
		User:   s.accounts[userID].user,
	}
	board.Members = append(board.Members, member)

	return member
}

// AddList appends a list to the board.
func (s *Server) AddList(boardID, title string) model.List {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createListLocked(boardID, title)
}

// AddCard appends a card to the list.
func (s *Server) AddCard(listID, title string) model.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createCardLocked(listID, model.Card{Title: title})
}

// AddLabel creates a board label.
func (s *Server) AddLabel(boardID, name, color string) model.Label {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createLabelLocked(boardID, name, color)
}

// AddComment posts a comment as the user.
func (s *Server) AddComment(cardID, userID, content string) model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createCommentLocked(cardID, userID, content)
}

// Lists returns the board's lists as the server orders them.
func (s *Server) Lists(boardID string) []model.List {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listsLocked(boardID)
}

// Cards returns the list's cards as the server orders them.
func (s *Server) Cards(listID string) []model.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cardsLocked(listID)
}

// Comments returns the card's comments.
func (s *Server) Comments(cardID string) []model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commentsLocked(cardID)
}

// Fail makes the next times requests matching method and path answer with status.
func (s *Server) Fail(method, path string, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = append(s.failures, &failure{method: method, path: path, status: status, times: times})
}

// HoldMutations blocks every non-GET request until release is called.
func (s *Server) HoldMutations() (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{})
	s.held = ch

	var once sync.Once

	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.held == ch {
				s.held = nil
			}
			s.mu.Unlock()

			close(ch)
		})
	}
}

// Requests lists every request received as "METHOD /path".
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.requests))
	copy(out, s.requests)

	return out
}

// Count returns how many requests matched "METHOD /path".
func (s *Server) Count(request string) int {
	n := 0

	for _, r := range s.Requests() {
		if r == request {
			n++
		}
	}

	return n
}

// Mutations returns the number of non-GET requests received.
func (s *Server) Mutations() int {
	n := 0

	for _, r := range s.Requests() {
		if !strings.HasPrefix(r, http.MethodGet+" ") {
			n++
		}
	}

	return n
}

// PushClients returns the number of open push connections.
func (s *Server) PushClients() int {
	return s.hub.count()
}

// Joined returns the number of push clients joined to the board.
func (s *Server) Joined(boardID string) int {
	return s.hub.joined(boardID)
}

// DropPushClients closes every push connection from the server side.
func (s *Server) DropPushClients() {
	s.hub.closeAll()
}

// Emit sends an event to every push client joined to the board.
func (s *Server) Emit(boardID, event string, data map[string]string) {
	s.hub.emit(boardID, event, data)
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		held := s.held

		var status int

		for _, f := range s.failures {
			if f.times > 0 && f.method == r.Method && f.path == r.URL.Path {
				f.times--
				status = f.status

				break
			}
		}
		s.mu.Unlock()

		if held != nil && r.Method != http.MethodGet {
			select {
			case <-held:
			case <-r.Context().Done():
				return
			}
		}

		if status != 0 {
			writeJSON(w, status, map[string]string{"message": fmt.Sprintf("injected failure %d", status)})

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) userID(r *http.Request) (string, bool) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		raw = r.URL.Query().Get("token")
	}

	token, err := gojwt.Parse(raw, func(*gojwt.Token) (any, error) { return secret, nil },
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", false
	}

	claims, _ := token.Claims.(gojwt.MapClaims)
	userID, _ := claims["user_id"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.accounts[userID]

	return userID, ok
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}
