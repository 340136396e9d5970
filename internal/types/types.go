// backend-go/internal/types/types.go
package types

// ContextKey types the values CLI hooks stash in a command context, keeping
// them distinct from string keys set elsewhere.
type ContextKey string

const (
	// DBKey carries the *sql.DB opened by a command's Before hook.
	DBKey ContextKey = "db"
)
