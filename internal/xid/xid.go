// Package xid generates prefixed identifiers for store entities, e.g.
// ord- for orders, pur- for purchases, ret- for returns and wo- for
// write-offs. The timestamp component keeps ids roughly sortable by
// creation time, which the list endpoints rely on for stable paging.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
