package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Empty values do not parse, so every typed setting falls back.
	for _, key := range []string{"DB_MAX_CONNS", "STATUS_MAX_BODY_LENGTH", "REQUEST_TIMEOUT", "PRETTY_LOG"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	assert.Equal(t, 500, cfg.MaxBodyLength)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.PrettyLog)
	assert.Equal(t, int32(20), cfg.DBMaxConns)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("STATUS_MAX_BODY_LENGTH", "280")
	t.Setenv("STATUS_MAX_PAGE_SIZE", "25")
	t.Setenv("STATUS_DEFAULT_PAGE_SIZE", "10")
	t.Setenv("REQUEST_TIMEOUT", "750ms")
	t.Setenv("PRETTY_LOG", "true")

	cfg := Load()

	assert.Equal(t, "9999", cfg.ServerPort)
	assert.Equal(t, 280, cfg.MaxBodyLength)
	assert.Equal(t, 25, cfg.MaxPageSize)
	assert.Equal(t, 10, cfg.DefaultPageSize)
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)
	assert.True(t, cfg.PrettyLog)
	require.NoError(t, cfg.Validate())
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("STATUS_MAX_BODY_LENGTH", "lots")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 500, cfg.MaxBodyLength)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_MaxConnsOutOfRange(t *testing.T) {
	// 2^32 + 5 would wrap to 5 under a plain int32 conversion.
	t.Setenv("DB_MAX_CONNS", "4294967301")
	assert.Equal(t, int32(20), Load().DBMaxConns)

	t.Setenv("DB_MAX_CONNS", "-3000000000")
	assert.Equal(t, int32(20), Load().DBMaxConns)

	t.Setenv("DB_MAX_CONNS", "8")
	assert.Equal(t, int32(8), Load().DBMaxConns)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "zero body length", mutate: func(c *Config) { c.MaxBodyLength = 0 }, wantErr: true},
		{name: "default above max", mutate: func(c *Config) { c.DefaultPageSize = c.MaxPageSize + 1 }, wantErr: true},
		{name: "zero conns", mutate: func(c *Config) { c.DBMaxConns = 0 }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				DBMaxConns:      20,
				MaxBodyLength:   500,
				DefaultPageSize: 50,
				MaxPageSize:     100,
				RequestTimeout:  time.Second,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "err: %v", err)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p@ss", DBHost: "db", DBPort: "5432", DBName: "statusd"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/statusd?sslmode=disable", cfg.DatabaseDSN())

	cfg.DatabaseURL = "postgres://elsewhere/db"
	assert.Equal(t, "postgres://elsewhere/db", cfg.DatabaseDSN())
}
