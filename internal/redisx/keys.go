package redisx

import "time"

const (
	// Submit idempotency: idem:order:submit:{Idempotency-Key} -> "pending" | order id
	KeyIdemOrderSubmit = "idem:order:submit:%s"

	// Rendered current catalog JSON: catalog:current:v{version}
	KeyCatalogCurrent = "catalog:current:v%d"
	KeyCatalogVersion = "catalog:version"

	// Event dedup: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Logged-out session ids: session:revoked:{jti}
	KeySessionRevoked = "session:revoked:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLIdemPending = 30 * time.Second
	TTLCatalog     = 60 * time.Second
	TTLDedup       = 48 * time.Hour
)
