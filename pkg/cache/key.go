package cache

import "fmt"

// Kind names an entity collection.
type Kind string

// These constants refer to the collections held by the cache.
const (
	KindBoards   Kind = "boards"
	KindLists    Kind = "lists"
	KindCards    Kind = "cards"
	KindComments Kind = "comments"
	KindLabels   Kind = "labels"
	KindMembers  Kind = "members"
)

// Key addresses one ordered collection by its kind and parent id.
type Key struct {
	Kind     Kind
	ParentID string
}

func (k Key) String() string {
	if k.ParentID == "" {
		return string(k.Kind)
	}

	return fmt.Sprintf("%s:%s", k.Kind, k.ParentID)
}

// Boards is the key of the current user's boards.
func Boards() Key { return Key{Kind: KindBoards} }

// Lists is the key of a board's lists.
func Lists(boardID string) Key { return Key{Kind: KindLists, ParentID: boardID} }

// Cards is the key of a list's cards.
func Cards(listID string) Key { return Key{Kind: KindCards, ParentID: listID} }

// Comments is the key of a card's comments.
func Comments(cardID string) Key { return Key{Kind: KindComments, ParentID: cardID} }

// Labels is the key of a board's labels.
func Labels(boardID string) Key { return Key{Kind: KindLabels, ParentID: boardID} }

// Members is the key of a board's member roster.
func Members(boardID string) Key { return Key{Kind: KindMembers, ParentID: boardID} }
