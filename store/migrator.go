package store

import (
	"context"
	"embed"

	"github.com/pkg/errors"
)

//go:embed migration
var migrationFS embed.FS

// LatestSchemaFileName is the full schema applied to fresh installations.
const LatestSchemaFileName = "LATEST.sql"

// Migrate applies the latest schema. All statements are idempotent
// (CREATE ... IF NOT EXISTS), so running it on an initialized database
// is a no-op.
func (s *Store) Migrate(ctx context.Context) error {
	buf, err := migrationFS.ReadFile("migration/" + s.profile.Driver + "/" + LatestSchemaFileName)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema for driver %q", s.profile.Driver)
	}

	if _, err := s.driver.GetDB().ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}
	return nil
}
