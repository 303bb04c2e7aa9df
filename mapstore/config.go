package mapstore

import "time"

// Config holds the non-feature settings needed to dial the remote store.
// Callers build one by hand (or load it through whatever startup
// mechanism their own process uses) and pass it to Dial.
type Config struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// DefaultConfig returns sane defaults for local development against a
// single-node Redis-compatible server.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
	}
}
