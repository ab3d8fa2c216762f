package mongo

import (
	"context"
	"time"

	"blogcomments/pkg/storage"
)

// MongoTestConf keeps server selection short so tests fail fast (and can
// skip) when the test instance is not running.
var MongoTestConf = &Config{
	Host:   "localhost",
	Port:   "27018",
	DBName: "blogcomments_test",

	ServerSelectionTimeout: 2 * time.Second,
}

// StorageConnect is a helper function that establishes a connection to the predefined test Mongo instance.
// It returns a connected Storage object or an error if connection fails.
func StorageConnect(ctx context.Context) (*Storage, error) {
	conf := MongoTestConf
	db, err := New(conf)
	if err != nil {
		return nil, storage.ErrConnectDB
	}

	err = db.Ping(ctx)
	if err != nil {
		return nil, storage.ErrDBNotResponding
	}

	return db, nil
}

// RestoreDB drops all collections to reset the database state.
// WARNING: Use only in tests to avoid data loss.
func RestoreDB(db *Storage) error {
	for _, name := range []string{collComments, collNotifications, collActivity} {
		coll := db.client.Database(db.dbName).Collection(name)
		if err := coll.Drop(context.Background()); err != nil {
			return err
		}
	}

	return nil
}
