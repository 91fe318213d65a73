package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parking-reservation/internal/logging"
)

// Health is a liveness probe; it never touches a dependency.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// PingDB adapts a *sql.DB (or anything with PingContext) to a Check.
func PingDB(db interface{ PingContext(context.Context) error }) Check {
	return db.PingContext
}

// PingRedis adapts a redis client to a Check.  A nil client, meaning
// Redis is disabled, is always ready.
func PingRedis(rdb *redis.Client) Check {
	return func(ctx context.Context) error {
		if rdb == nil {
			return nil
		}
		return rdb.Ping(ctx).Err()
	}
}

// Ready returns a readiness probe that runs every check with a shared
// two second deadline and answers 503 when any of them fails.
func Ready(checks map[string]Check) echo.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		out := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				logging.Warn(ctx).Err(err).Str("dependency", name).Msg("readiness check failed")
				out[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			out[name] = "up"
		}
		return c.JSON(status, echo.Map{"checks": out})
	}
}
