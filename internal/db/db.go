package db

import (
	"context"

	"weekly_poll_bot/configs"

	"github.com/go-pg/pg/v10"
	"go.uber.org/zap"
)

type dbLogger struct {
	logger *zap.SugaredLogger
}

func (d dbLogger) BeforeQuery(c context.Context, q *pg.QueryEvent) (context.Context, error) {
	query, err := q.FormattedQuery()
	if err != nil {
		return c, nil
	}

	d.logger.Debug(string(query))
	return c, nil
}

func (d dbLogger) AfterQuery(c context.Context, q *pg.QueryEvent) error {
	return nil
}

// StartDB connects, upgrades a legacy single-group schema if one is found and
// applies pending migrations. Rows of a legacy schema are assigned to
// groupID.
func StartDB(config configs.DB, groupID string, logger *zap.SugaredLogger) (*pg.DB, error) {
	options, err := pg.ParseURL(config.URL)
	if err != nil {
		logger.Errorw("failed to parse db url", "error", err)
		return nil, err
	}

	db := pg.Connect(options)
	db.AddQueryHook(dbLogger{logger})

	if err := db.Ping(context.Background()); err != nil {
		logger.Errorw("failed to ping db", "error", err)
		_ = db.Close()
		return nil, err
	}

	if err := upgradeLegacySchema(context.Background(), db, groupID, logger); err != nil {
		logger.Errorw("failed to upgrade legacy schema", "error", err)
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func runMigrations(db *pg.DB, logger *zap.SugaredLogger) error {
	collection := newMigrationCollection()

	_, _, err := collection.Run(db, "init")
	if err != nil {
		logger.Errorw("failed to init migrations", "error", err)
		return err
	}
	logger.Info("migrations initialized")

	oldVersion, newVersion, err := collection.Run(db, "up")
	if err != nil {
		logger.Errorw("failed to run migrations", "error", err)
		return err
	}

	if newVersion != oldVersion {
		logger.Infof("migrated from version %d to %d", oldVersion, newVersion)
	} else {
		logger.Infof("version is %d", oldVersion)
	}

	return nil
}
