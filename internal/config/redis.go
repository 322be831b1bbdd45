package config

// Redis backs two optional features: the auth rate limiter and the event
// listing response cache.  When the server cannot reach Redis at startup
// the constructor returns nil and both features degrade to pass-through
// rather than failing the boot.

import (
	"context"
	"crypto/tls"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a Redis client from the environment:
//
//   REDIS_ADDR     – host:port (wins over host/port pair)
//   REDIS_HOST / REDIS_PORT – hostname and port, default localhost:6379
//   REDIS_PASSWORD – optional password
//   REDIS_DB       – database number, default 0
//   REDIS_TLS      – "true"/"1" enables TLS
//
// The connection is verified with a short ping; nil is returned when the
// server is unreachable.
func NewRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
			addr = host + ":" + port
		}
	}
	if addr == "" {
		addr = "localhost:6379"
	}

	var tlsConf *tls.Config
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}

	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
