package users

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

//go:embed data/templates
var templatesFS embed.FS

// TemplatesFS exposes the email templates rooted at the template directory
// so that view names resolve without the data/templates prefix.
var TemplatesFS, _ = fs.Sub(templatesFS, "data/templates")

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
