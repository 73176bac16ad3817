package shared

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/access"
	"github.com/trezcool/dailies/core/daily"
	"github.com/trezcool/dailies/core/directory"
	"github.com/trezcool/dailies/storage/database"
	inmemdb "github.com/trezcool/dailies/storage/database/inmem"
	sqlxrepos "github.com/trezcool/dailies/storage/database/sqlx"
	mongorepos "github.com/trezcool/dailies/storage/mongodb"
	redisstore "github.com/trezcool/dailies/storage/redis"
)

// Deps holds the store clients of a process. They are created once by Open and released by Close.
type Deps struct {
	Conf          *core.Config
	DirectoryRepo directory.Repository
	DailyRepo     daily.Repository
	Sessions      access.SessionStore // nil for the admin CLI
	SQL           *sqlx.DB            // set with the postgres engine

	closers []func(context.Context) error
}

// Open connects the stores configured for `app`. On error, whatever was already opened is closed.
func Open(ctx context.Context, conf *core.Config, app core.App) (deps *Deps, err error) {
	deps = &Deps{Conf: conf}
	defer func() {
		if err != nil {
			_ = deps.Close(ctx)
			deps = nil
		}
	}()

	mem := inmemdb.Open()

	switch conf.Database.Engine {
	case core.EnginePostgres:
		if err = database.CreateIfNotExist(conf); err != nil {
			return deps, err
		}
		db, oErr := database.Open(conf)
		if oErr != nil {
			return deps, oErr
		}
		deps.onClose(func(context.Context) error { return db.Close() })
		if err = database.Migrate(ctx, db.DB); err != nil {
			return deps, err
		}
		deps.SQL = db
		deps.DirectoryRepo = sqlxrepos.NewDirectoryRepository(db)
		deps.DailyRepo = sqlxrepos.NewDailyRepository(db)

	case core.EngineMongoDB:
		client, cErr := mongorepos.Connect(ctx, conf)
		if cErr != nil {
			return deps, cErr
		}
		deps.onClose(client.Disconnect)
		db := mongorepos.Database(client, conf)
		deps.DirectoryRepo = mongorepos.NewDirectoryRepository(db)
		deps.DailyRepo = mongorepos.NewDailyRepository(db)

	case core.EngineInMem:
		deps.DirectoryRepo = inmemdb.NewDirectoryRepository(mem)
		deps.DailyRepo = inmemdb.NewDailyRepository(mem)

	default:
		return deps, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}

	if app == core.AppAdmin {
		return deps, nil
	}

	switch conf.Session.Store {
	case core.SessionStoreRedis:
		client, rErr := redisstore.Open(ctx, conf.Session.RedisURL)
		if rErr != nil {
			return deps, rErr
		}
		deps.onClose(func(context.Context) error { return client.Close() })
		deps.Sessions = redisstore.NewSessionStore(client)
	default:
		deps.Sessions = inmemdb.NewSessionStore(mem)
	}
	return deps, nil
}

func (d *Deps) onClose(fn func(context.Context) error) {
	d.closers = append(d.closers, fn)
}

// Close releases the store clients in reverse order of creation.
func (d *Deps) Close(ctx context.Context) error {
	var firstErr error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "closing store")
		}
	}
	d.closers = nil
	return firstErr
}
