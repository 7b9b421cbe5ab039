package db

import (
	"github.com/pkg/errors"

	"github.com/mnemoslab/engram/internal/profile"
	"github.com/mnemoslab/engram/store"
	"github.com/mnemoslab/engram/store/db/postgres"
)

// NewDBDriver creates new db driver based on profile.
//
// PostgreSQL is the only supported driver: the engine depends on pgvector
// similarity search in SQL for retrieval, cache lookup and the forgetting
// cascade.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "postgres":
		driver, err := postgres.NewDB(profile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create db driver")
		}
		return driver, nil
	default:
		return nil, errors.Errorf("unknown db driver: %q (only 'postgres' is supported)", profile.Driver)
	}
}
