package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seann-Moser/go-bench/pkg/clientpkg"
)

const (
	DriverFlag                = "docstore-driver"
	DSNFlag                   = "docstore-dsn"
	HostFlag                  = "docstore-host"
	PortFlag                  = "docstore-port"
	UserFlag                  = "docstore-user"
	PasswordFlag              = "docstore-password"
	DatabaseFlag              = "docstore-database"
	CollectionFlag            = "docstore-collection"
	DocumentIDFlag            = "docstore-document-id"
	MaxConnectionsFlag        = "docstore-max-connections"
	MaxIdleConnectionsFlag    = "docstore-max-idle-connections"
	MaxConnectionLifetimeFlag = "docstore-max-connection-lifetime"
	RedisAddressFlag          = "docstore-redis-address"
	RedisPasswordFlag         = "docstore-redis-password"
	RedisDBFlag               = "docstore-redis-db"

	backoffPrefix = "docstore"

	DefaultDocumentID = "664757f5fa35bada45c03725"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrInvalidCollection = errors.New("invalid collection name")
	ErrInvalidDocument   = errors.New("document is not valid json")

	collectionPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)
)

// Store reads and writes JSON documents by primary key within one collection.
type Store interface {
	Get(ctx context.Context, id string) (json.RawMessage, error)
	Put(ctx context.Context, id string, doc json.RawMessage) error
	Ping(ctx context.Context) error
	Close() error
}

func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("docstore", pflag.ExitOnError)
	fs.String(DriverFlag, "sqlite", "sqlite, mysql, postgres or redis")
	fs.String(DSNFlag, "", "data source name; sqlite defaults to bench.db, mysql and postgres build one from the host settings")
	fs.String(HostFlag, "localhost", "")
	fs.Int(PortFlag, 0, "defaults to the driver's standard port")
	fs.String(UserFlag, "", "")
	fs.String(PasswordFlag, "", "")
	fs.String(DatabaseFlag, "bench", "")
	fs.String(CollectionFlag, "benchmark", "table or key namespace holding the documents")
	fs.String(DocumentIDFlag, DefaultDocumentID, "id of the document served by /api/readDB")
	fs.Int(MaxConnectionsFlag, 10, "")
	fs.Int(MaxIdleConnectionsFlag, 10, "")
	fs.Duration(MaxConnectionLifetimeFlag, time.Minute, "")
	fs.String(RedisAddressFlag, "localhost:6379", "")
	fs.String(RedisPasswordFlag, "", "")
	fs.Int(RedisDBFlag, 0, "")
	fs.AddFlagSet(clientpkg.BackOffFlags(backoffPrefix))
	return fs
}

// NewFromFlags opens the configured store and waits for it to answer a ping.
func NewFromFlags(ctx context.Context) (Store, error) {
	driver := viper.GetString(DriverFlag)
	collection := viper.GetString(CollectionFlag)
	if !collectionPattern.MatchString(collection) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
	}

	var store Store
	var err error
	switch driver {
	case DriverRedis:
		store = NewRedisStoreFromFlags(collection)
	case DriverSQLite, DriverMySQL, DriverPostgres:
		store, err = NewSQLStore(ctx, SQLConfig{
			Driver:                driver,
			DSN:                   sqlDSN(driver),
			Collection:            collection,
			MaxConnections:        viper.GetInt(MaxConnectionsFlag),
			MaxIdleConnections:    viper.GetInt(MaxIdleConnectionsFlag),
			MaxConnectionLifetime: viper.GetDuration(MaxConnectionLifetimeFlag),
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported %s: %q", DriverFlag, driver)
	}

	err = clientpkg.NewBackoffFromFlags(backoffPrefix).Retry(ctx, func() error {
		return store.Ping(ctx)
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed connecting to %s docstore: %w", driver, err)
	}
	return store, nil
}

// DocumentID is the id /api/readDB serves.
func DocumentID() string {
	if id := viper.GetString(DocumentIDFlag); id != "" {
		return id
	}
	return DefaultDocumentID
}

func validDocument(doc json.RawMessage) error {
	if !json.Valid(doc) {
		return ErrInvalidDocument
	}
	return nil
}
