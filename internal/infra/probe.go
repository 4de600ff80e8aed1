package infra

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Probe values for backends that are not configured.
const (
	ProbeOK       = "ok"
	ProbeMemory   = "memory"
	ProbeDisabled = "disabled"
)

// ProbePostgres reports ProbeMemory without a pool, ProbeOK or the ping error.
func ProbePostgres(ctx context.Context, pool *pgxpool.Pool) string {
	if pool == nil {
		return ProbeMemory
	}
	if err := pool.Ping(ctx); err != nil {
		return err.Error()
	}
	return ProbeOK
}

// ProbeRedis reports ProbeDisabled without a client, ProbeOK or the ping error.
func ProbeRedis(ctx context.Context, client *redis.Client) string {
	if client == nil {
		return ProbeDisabled
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return err.Error()
	}
	return ProbeOK
}

// Healthy reports whether a probe result is acceptable.
func Healthy(probe string) bool {
	return probe == ProbeOK || probe == ProbeMemory || probe == ProbeDisabled
}
