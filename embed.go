package liminal

import "embed"

// EmailFS embeds the html/plaintext email template pairs under
// templates/emails.
//
//go:embed templates/emails
var EmailFS embed.FS

// MigrationFS embeds the SQL migrations applied by internal/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
