package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("FISCAL_MAX_RETRIES", "5")
	t.Setenv("FISCAL_ISSUER_TAX_ID", "B12345678")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, 5, cfg.Fiscal.MaxRetries)
	assert.Equal(t, "B12345678", cfg.Fiscal.IssuerTaxID)
	assert.Equal(t, "R", cfg.Fiscal.RectifySuffix)
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("HTTP_PORT", "abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "pos", Password: "p@ss:word", DBName: "fiscal", SSLMode: "disable"}
	assert.Equal(t, "postgres://pos:p%40ss%3Aword@db:5432/fiscal?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}

func TestValidate_NegativeRetries(t *testing.T) {
	c := &Config{DB: DBConfig{Driver: DriverPostgres}, Fiscal: FiscalConfig{MaxRetries: -1, RectifySuffix: "R"}}
	assert.Error(t, c.Validate())
}

func TestLoad_TimezoneInvalida(t *testing.T) {
	t.Setenv("FISCAL_TIMEZONE", "Marte/Olympus")

	_, err := Load()
	assert.Error(t, err)
}
