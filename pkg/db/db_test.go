package db

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cantiere/pkg/config"
)

func TestDSN_RoundTripsThroughPgx(t *testing.T) {
	cfg := config.DBConfig{
		Host:     "db.internal",
		Port:     6432,
		User:     "gantt",
		Password: "p@ss:w/rd?",
		Name:     "cantiere",
		SSLMode:  "require",
	}

	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "db.internal", poolCfg.ConnConfig.Host)
	assert.Equal(t, uint16(6432), poolCfg.ConnConfig.Port)
	assert.Equal(t, "gantt", poolCfg.ConnConfig.User)
	assert.Equal(t, "p@ss:w/rd?", poolCfg.ConnConfig.Password)
	assert.Equal(t, "cantiere", poolCfg.ConnConfig.Database)
}

func TestDSN_DefaultsSSLModeToDisable(t *testing.T) {
	dsn := DSN(config.DBConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "cantiere"})
	assert.Contains(t, dsn, "sslmode=disable")
}
