package vectorutils

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/papercomputeco/ragloop/pkg/vector"
	"github.com/papercomputeco/ragloop/pkg/vector/chroma"
	"github.com/papercomputeco/ragloop/pkg/vector/inmemory"
	"github.com/papercomputeco/ragloop/pkg/vector/pgvector"
	"github.com/papercomputeco/ragloop/pkg/vector/qdrant"
	"github.com/papercomputeco/ragloop/pkg/vector/sqlitevec"
)

// Supported vector store providers.
const (
	ProviderInMemory = "memory"
	ProviderSQLite   = "sqlite"
	ProviderPgVector = "pgvector"
	ProviderQdrant   = "qdrant"
	ProviderChroma   = "chroma"
)

type NewVectorDriverOpts struct {
	// ProviderType selects the driver. Empty means in-memory.
	ProviderType string

	// Target is the provider location: a DB path for sqlite, a DSN for
	// pgvector, host[:port] or a URL for qdrant, and a URL for chroma.
	Target string

	// Collection names the table or collection for remote providers.
	Collection string

	// APIKey authenticates against qdrant.
	APIKey string

	Dimensions uint
	Logger     *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "", ProviderInMemory:
		return inmemory.NewIndex(inmemory.Config{
			Dimensions: o.Dimensions,
		}, o.Logger), nil

	case ProviderSQLite:
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)

	case ProviderPgVector:
		return pgvector.NewPgVectorDriver(ctx, pgvector.Config{
			DSN:        o.Target,
			Table:      o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)

	case ProviderQdrant:
		host, port, useTLS, err := parseQdrantTarget(o.Target)
		if err != nil {
			return nil, err
		}
		return qdrant.NewQdrantDriver(ctx, qdrant.Config{
			Host:           host,
			Port:           port,
			APIKey:         o.APIKey,
			UseTLS:         useTLS,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)

	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL:            o.Target,
			CollectionName: o.Collection,
		}, o.Logger)

	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

// parseQdrantTarget accepts "host", "host:port", or "http(s)://host:port".
func parseQdrantTarget(target string) (string, int, bool, error) {
	if target == "" {
		return "", 0, false, fmt.Errorf("qdrant target is required")
	}

	useTLS := false
	hostPort := target
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		useTLS = u.Scheme == "https"
		hostPort = u.Host
	}

	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		// No port given.
		return hostPort, 0, useTLS, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, useTLS, nil
}
