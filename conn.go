package docstore

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvConnString is the environment variable supplying the store endpoint.
const EnvConnString = "DOCSTORE_URI"

// Connect initializes a Store handle for the given connection string,
// dispatching on its scheme. dbName selects the logical database for
// backends that have one; the SQL backends take it from the URI itself.
func Connect(ctx context.Context, uri string, dbName string) (Store, error) {
	switch {
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		return ConnectMongo(ctx, uri, dbName)
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return ConnectPostgres(ctx, uri)
	case strings.HasPrefix(uri, "sqlite://"):
		return ConnectSqlite(ctx, strings.TrimPrefix(uri, "sqlite://"))
	default:
		return nil, fmt.Errorf("unsupported connection string %q", uri)
	}
}

// FromEnv connects using the DOCSTORE_URI environment variable.
func FromEnv(ctx context.Context, dbName string) (Store, error) {
	uri := os.Getenv(EnvConnString)
	if uri == "" {
		return nil, fmt.Errorf("%s is not set", EnvConnString)
	}

	return Connect(ctx, uri, dbName)
}
