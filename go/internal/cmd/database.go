package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/prophecy/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

func setupDatabase(ctx context.Context) (*pgxpool.Pool, error) {
	dbConfig := dbconfig.NewConfigFromEnv()

	poolConfig, err := dbConfig.PoolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("user", poolConfig.ConnConfig.User).
		Str("host", poolConfig.ConnConfig.Host).
		Uint16("port", poolConfig.ConnConfig.Port).
		Str("database", poolConfig.ConnConfig.Database).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("connected to database")
	return pool, nil
}
