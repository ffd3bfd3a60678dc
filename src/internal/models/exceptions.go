package models

import "errors"

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFoundOrExpired   = errors.New("not found or expired")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrGenerationExhausted = errors.New("failed to generate pairing code")
)

var (
	ErrTransientTransport = errors.New("transient transport failure")
	ErrCollectorRejected  = errors.New("collector rejected request")
	ErrNoCredentials      = errors.New("no credentials")
)

var (
	ErrRedisGet    = errors.New("redis get error")
	ErrRedisSet    = errors.New("redis set error")
	ErrRedisDelete = errors.New("redis delete error")
	ErrRedisScan   = errors.New("redis scan error")
)

var (
	ErrDatabaseConnection = errors.New("database connection error")
	ErrDatabaseQuery      = errors.New("database query error")
	ErrDatabaseInsert     = errors.New("database insert error")
)

var (
	ErrLocalStateRead  = errors.New("local state read error")
	ErrLocalStateWrite = errors.New("local state write error")
)
