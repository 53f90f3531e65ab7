package api

import (
	"context"
	"fmt"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
)

// Load implements cache.Loader: every cache key maps to exactly one GET.
func (c *Client) Load(ctx context.Context, key cache.Key) (any, error) {
	switch key.Kind {
	case cache.KindBoards:
		return c.Boards(ctx)
	case cache.KindLists:
		return c.Lists(ctx, key.ParentID)
	case cache.KindCards:
		return c.Cards(ctx, key.ParentID)
	case cache.KindComments:
		return c.Comments(ctx, key.ParentID)
	case cache.KindLabels:
		return c.Labels(ctx, key.ParentID)
	case cache.KindMembers:
		return c.BoardMembers(ctx, key.ParentID)
	}

	return nil, fmt.Errorf("no endpoint for cache key %s", key)
}
