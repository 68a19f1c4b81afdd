package redisx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/georgesalomon/umarket2/internal/market"
)

// Inbox keeps each user's most recent notifications in a capped list.
type Inbox struct{ Redis *redis.Client }

func (in *Inbox) Push(ctx context.Context, userID string, n market.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	key := inboxKey(userID)
	_, err = in.Redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, key, b)
		p.LTrim(ctx, key, 0, InboxLimit-1)
		p.Expire(ctx, key, TTLInbox)
		return nil
	})
	return err
}

// List returns up to limit notifications, newest first.
func (in *Inbox) List(ctx context.Context, userID string, limit int) ([]market.Notification, error) {
	if limit <= 0 || limit > InboxLimit {
		limit = InboxLimit
	}
	raw, err := in.Redis.LRange(ctx, inboxKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]market.Notification, 0, len(raw))
	for _, s := range raw {
		var n market.Notification
		if err := json.Unmarshal([]byte(s), &n); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}
