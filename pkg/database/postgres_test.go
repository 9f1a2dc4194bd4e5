package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/hms-api/pkg/config"
)

func TestDSNIncludesPoolIdentity(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "hms", Password: "pw", Name: "hms", SSLMode: "require"})
	assert.Equal(t, "host=db port=5433 user=hms password=pw dbname=hms sslmode=require application_name=hms-api connect_timeout=10", dsn)
}
