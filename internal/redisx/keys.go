package redisx

import (
	"fmt"
	"time"
)

const (
	// Order placement replay: idem:order:create:{buyer_id}:{key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Processed events: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Notifications, newest first: inbox:{user_id}
	KeyInbox = "inbox:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
	TTLInbox       = 30 * 24 * time.Hour
)

// InboxLimit caps how many notifications a user keeps.
const InboxLimit = 100

func idemKey(scope, key string) string { return fmt.Sprintf(KeyIdemOrderCreate, scope, key) }
func dedupKey(service, eventID string) string { return fmt.Sprintf(KeyDedup, service, eventID) }
func inboxKey(userID string) string { return fmt.Sprintf(KeyInbox, userID) }
