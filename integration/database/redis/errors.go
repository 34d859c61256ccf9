package redis

import "errors"

var (
	// ErrEmptyConnectionURL indicates no Redis connection URL was provided.
	ErrEmptyConnectionURL = errors.New("empty redis connection URL")

	// ErrFailedToParseConnString indicates the Redis URL could not be parsed.
	ErrFailedToParseConnString = errors.New("failed to parse redis connection string")

	// ErrConnectionFailed indicates Redis did not answer the initial ping.
	ErrConnectionFailed = errors.New("failed to connect to redis")
)
