package model

// Clone returns a deep copy of the card.
func (c Card) Clone() Card {
	out := c

	if c.DueDate != nil {
		due := *c.DueDate
		out.DueDate = &due
	}

	out.Labels = cloneSlice(c.Labels)
	out.Assignees = cloneSlice(c.Assignees)

	return out
}

// Clone returns a deep copy of the board.
func (b Board) Clone() Board {
	out := b
	out.Members = cloneSlice(b.Members)

	return out
}

// Clone returns a deep copy of the roster.
func (m BoardMembers) Clone() BoardMembers {
	out := m
	out.Members = cloneSlice(m.Members)

	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}

	out := make([]T, len(in))
	copy(out, in)

	return out
}

// CloneCards deep copies a card collection.
func CloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}

	out := make([]Card, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}

	return out
}

// CloneBoards deep copies a board collection.
func CloneBoards(boards []Board) []Board {
	if boards == nil {
		return nil
	}

	out := make([]Board, len(boards))
	for i, b := range boards {
		out[i] = b.Clone()
	}

	return out
}

// CloneValue deep copies any collection value stored in the entity cache so that no caller
// ever holds a reference into cache storage.
func CloneValue(v any) any {
	switch t := v.(type) {
	case []Card:
		return CloneCards(t)
	case []Board:
		return CloneBoards(t)
	case []List:
		return cloneSlice(t)
	case []Label:
		return cloneSlice(t)
	case []Comment:
		return cloneSlice(t)
	case BoardMembers:
		return t.Clone()
	case *BoardMembers:
		if t == nil {
			return t
		}

		c := t.Clone()

		return &c
	}

	return v
}
