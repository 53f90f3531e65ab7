// Package push receives server events for the joined board over a websocket and routes them,
// as typed events, to the handlers subscribed to each kind.
package push

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnknownEvent is returned when decoding a frame whose event name is not in the taxonomy.
var ErrUnknownEvent = errors.New("unknown event")

// EventKind is one of the server's board scoped event names.
type EventKind int

// These constants refer to the events the server emits to joined clients.
const (
	CardCreated EventKind = iota + 1
	CardUpdated
	CardDeleted
	CardMoved
	CardAssigneeAdded
	CardAssigneeRemoved
	CardLabelAdded
	CardLabelRemoved
	ListCreated
	ListUpdated
	ListDeleted
	ListMoved
	BoardUpdated
	BoardMemberAdded
	BoardMemberRemoved
	BoardMemberRoleUpdated
	CommentCreated
	CommentDeleted
)

var kindNames = map[EventKind]string{
	CardCreated:            "card:created",
	CardUpdated:            "card:updated",
	CardDeleted:            "card:deleted",
	CardMoved:              "card:moved",
	CardAssigneeAdded:      "card:assignee_added",
	CardAssigneeRemoved:    "card:assignee_removed",
	CardLabelAdded:         "card:label_added",
	CardLabelRemoved:       "card:label_removed",
	ListCreated:            "list:created",
	ListUpdated:            "list:updated",
	ListDeleted:            "list:deleted",
	ListMoved:              "list:moved",
	BoardUpdated:           "board:updated",
	BoardMemberAdded:       "board:member_added",
	BoardMemberRemoved:     "board:member_removed",
	BoardMemberRoleUpdated: "board:member_role_updated",
	CommentCreated:         "comment:created",
	CommentDeleted:         "comment:deleted",
}

var kindsByName = func() map[string]EventKind {
	out := make(map[string]EventKind, len(kindNames))
	for k, name := range kindNames {
		out[name] = k
	}

	return out
}()

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Kinds returns every event kind in declaration order.
func Kinds() []EventKind {
	out := make([]EventKind, 0, len(kindNames))
	for k := CardCreated; k <= CommentDeleted; k++ {
		out = append(out, k)
	}

	return out
}

// ParseEventKind maps a wire name to its kind.
func ParseEventKind(name string) (EventKind, error) {
	if k, ok := kindsByName[name]; ok {
		return k, nil
	}

	return 0, fmt.Errorf("%w '%s'", ErrUnknownEvent, name)
}

// Payload carries the ids of the entity an event is about and of its containers.
type Payload struct {
	BoardID   string `json:"board_id"`
	ListID    string `json:"list_id,omitempty"`
	OldListID string `json:"old_list_id,omitempty"`
	NewListID string `json:"new_list_id,omitempty"`
	CardID    string `json:"card_id,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
	LabelID   string `json:"label_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// Event is a decoded server event.
type Event struct {
	Kind    EventKind
	Payload Payload
}

type frame struct {
	Event string              `json:"event"`
	Data  jsoniter.RawMessage `json:"data"`
}

// Decode parses a server frame of the form {"event": name, "data": payload}. Frames with an
// unknown name or missing the ids their kind needs are rejected.
func Decode(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Event{}, fmt.Errorf("error decoding push frame: %w", err)
	}

	kind, err := ParseEventKind(f.Event)
	if err != nil {
		return Event{}, err
	}

	ev := Event{Kind: kind}

	if len(f.Data) > 0 {
		if err := json.Unmarshal(f.Data, &ev.Payload); err != nil {
			return Event{}, fmt.Errorf("error decoding %s payload: %w", kind, err)
		}
	}

	if missing := ev.missing(); len(missing) > 0 {
		return Event{}, fmt.Errorf("error decoding %s payload: missing %s", kind, strings.Join(missing, ", "))
	}

	return ev, nil
}

func (e Event) missing() []string {
	p := e.Payload
	need := map[string]string{"board_id": p.BoardID}

	switch e.Kind {
	case CardCreated, CardUpdated, CardDeleted:
		need["card_id"] = p.CardID
		need["list_id"] = p.ListID
	case CardMoved:
		need["card_id"] = p.CardID
		need["old_list_id"] = p.OldListID
		need["new_list_id"] = p.NewListID
	case CardAssigneeAdded, CardAssigneeRemoved:
		need["card_id"] = p.CardID
		need["list_id"] = p.ListID
		need["user_id"] = p.UserID
	case CardLabelAdded, CardLabelRemoved:
		need["card_id"] = p.CardID
		need["list_id"] = p.ListID
		need["label_id"] = p.LabelID
	case ListCreated, ListUpdated, ListDeleted, ListMoved:
		need["list_id"] = p.ListID
	case BoardMemberAdded, BoardMemberRemoved, BoardMemberRoleUpdated:
		need["user_id"] = p.UserID
	case CommentCreated, CommentDeleted:
		need["card_id"] = p.CardID
		need["comment_id"] = p.CommentID
	}

	var missing []string

	for _, field := range []string{"board_id", "list_id", "old_list_id", "new_list_id", "card_id", "comment_id", "label_id", "user_id"} {
		if v, ok := need[field]; ok && v == "" {
			missing = append(missing, field)
		}
	}

	return missing
}

type roomFrame struct {
	Event string            `json:"event"`
	Data  map[string]string `json:"data"`
}

func encodeRoom(event, boardID string) ([]byte, error) {
	data, err := json.Marshal(roomFrame{Event: event, Data: map[string]string{"board_id": boardID}})
	if err != nil {
		return nil, fmt.Errorf("error encoding %s: %w", event, err)
	}

	return data, nil
}
