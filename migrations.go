// Package mindchat embeds the SQL migrations used by the PostgreSQL state store.
package mindchat

import "embed"

//go:embed migrations/*.sql
var MigrationsFS embed.FS
