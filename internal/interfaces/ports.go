package interfaces

import (
	"context"
	"io"
	"time"
)

// Messenger delivers outbound text to a channel recipient.
type Messenger interface {
	SendMessage(ctx context.Context, to, content string) error
}

// Cache stores short-lived serialized values. Get reports a miss with ok=false.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ObjectStore keeps original document bodies.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
}
