package pg

import "time"

// Config holds PostgreSQL connection settings with environment variable
// mapping. Defaults suit a modest commerce workload.
type Config struct {
	ConnectionString string        `env:"PG_CONN_URL,required"`
	MaxOpenConns     int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	MinIdleConns     int32         `env:"PG_MIN_IDLE_CONNS" envDefault:"2"`
	MaxConnIdleTime  time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime  time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`
	ConnectTimeout   time.Duration `env:"PG_CONNECT_TIMEOUT" envDefault:"5s"`
}
