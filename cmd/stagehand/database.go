package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Connection retry bounds. Fresh deployments race the Postgres container, so
// startup tolerates a short unavailability window before giving up.
const (
	dbPingTimeout  = 3 * time.Second
	dbConnectWait  = 45 * time.Second
	dbRetryBackoff = time.Second
)

// openDatabase opens a pgx-backed handle and waits for the instance to answer
// pings, retrying until dbConnectWait elapses or ctx is cancelled.
func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	deadline := time.Now().Add(dbConnectWait)
	attempt := 0
	for {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			if attempt > 1 {
				log.Info().Int("attempts", attempt).Msg("database reachable")
			}
			return db, nil
		}

		if ctx.Err() != nil || time.Now().After(deadline) {
			break
		}

		log.Warn().Err(err).Int("attempt", attempt).Msg("database not ready, retrying")
		select {
		case <-ctx.Done():
		case <-time.After(dbRetryBackoff):
		}
	}

	_ = db.Close()
	return nil, fmt.Errorf("ping database: %w", err)
}
