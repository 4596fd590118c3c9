package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/prophecy/go/clients"
	"github.com/mcdev12/prophecy/go/internal/realtime"
	"github.com/mcdev12/prophecy/go/internal/realtime/transport"
	"github.com/mcdev12/prophecy/go/internal/snapshotdb"
)

type Services struct {
	Session *realtime.Session
	Syncer  *realtime.Syncer

	db *pgxpool.Pool
}

func setupServices(ctx context.Context, config *Config) (*Services, error) {
	// Wire up the sync chain
	// Snapshot source + push transport → Syncer → Session store
	services := &Services{Session: realtime.NewSession()}
	api := clients.NewProphecyClient(config.API.BaseURL, config.API.SessionToken)

	var source realtime.SnapshotSource
	switch config.Snapshot.Source {
	case SnapshotSourcePostgres:
		pool, err := setupDatabase(ctx)
		if err != nil {
			return nil, err
		}
		services.db = pool
		source = snapshotdb.NewSource(pool, config.Snapshot.UserID)
	default:
		source = api
	}

	var tr transport.Transport
	switch config.Stream.Transport {
	case TransportWebSocket:
		wsConfig := transport.DefaultWebSocketConfig(config.API.BaseURL)
		wsConfig.Header = api.Headers()
		tr = transport.NewWebSocket(wsConfig)
	case TransportNATS:
		natsConfig := transport.DefaultNATSConfig()
		natsConfig.URL = config.Stream.NATSURL
		natsConfig.Subject = config.Stream.NATSSubject
		natsConfig.Token = config.Stream.NATSToken
		tr = transport.NewNATS(natsConfig)
	case TransportSSE:
		sseConfig := transport.DefaultSSEConfig(config.API.BaseURL)
		sseConfig.Header = api.Headers()
		tr = transport.NewSSE(sseConfig)
	default:
		services.Close()
		return nil, fmt.Errorf("unknown stream transport %q", config.Stream.Transport)
	}

	services.Syncer = realtime.NewSyncer(config.syncConfig(), services.Session, source, tr)
	return services, nil
}

func (s *Services) Close() {
	if s.db != nil {
		s.db.Close()
	}
}
