package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"

	"github.com/realtyhub/realtyhub/internal/config"
)

func testPGConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "realtyhub",
		Password: "secret",
		Database: "realtyhub",
		SSLMode:  "disable",
	}
}

func TestRunMigrateUnknownCommand(t *testing.T) {
	err := RunMigrate(nil, testPGConfig(), nil, "invalid", nil)
	assert.ErrorContains(t, err, "unknown migrate command")
}

func TestRunMigrateForceValidation(t *testing.T) {
	fsys := fstest.MapFS{}
	assert.ErrorContains(t, RunMigrate(nil, testPGConfig(), fsys, "force", nil), "requires a version")
	assert.ErrorContains(t, RunMigrate(nil, testPGConfig(), fsys, "force", []string{"x"}), "invalid version")
}

func TestRunMigrateRequiresSource(t *testing.T) {
	assert.ErrorContains(t, RunMigrate(nil, testPGConfig(), nil, "up", nil), "migrations not provided")
}
