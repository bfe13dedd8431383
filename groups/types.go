// Package groups implements the domain layer around the balance core:
// group membership, the expense and payment lifecycle, snapshot assembly,
// and the settle-up flow. It talks to persistence through the Store
// interface and hands immutable snapshots to the ledger package.
package groups

import (
	"strings"
	"time"

	"github.com/warp/settle-engine/ledger"
)

// =============================================================================
// DOMAIN ENTITIES
// =============================================================================

// User is a group member. Only identity matters to the balance core.
type User struct {
	ID        ledger.UserID
	Name      string
	Email     string // normalized to lower case at ingestion
	CreatedAt time.Time
}

// Group owns its expenses and payments by reference; it never caches a
// computed balance.
type Group struct {
	ID          ledger.GroupID
	Name        string
	Description string
	CreatedAt   time.Time
}

// NormalizeEmail lower-cases and trims an email address. Applied exactly
// once, at the ingestion boundary, rather than as a hidden persistence
// hook.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
