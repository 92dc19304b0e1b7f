package database

import (
	"context"
	"errors"
	"testing"

	"pairing-workers/internal/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresClient_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	client := &PostgresClient{DB: db}

	mock.ExpectPing()
	assert.NoError(t, client.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, client.Ping(context.Background()))

	mock.ExpectClose()
	assert.NoError(t, client.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgres_DoesNotDial(t *testing.T) {
	client, err := NewPostgres(config.PostgresConfig{
		Host: "127.0.0.1", Port: 1, Database: "pairing", User: "pairing", SSLMode: "disable",
		MaxConnections: 4, MaxIdle: 1,
	})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 4, client.DB.Stats().MaxOpenConnections)
}

func TestRedisClient_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	assert.NoError(t, client.Ping(context.Background()))

	mr.Close()
	err = client.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
	assert.NoError(t, client.Close())
}

func TestClose_NilClients(t *testing.T) {
	assert.NoError(t, (&PostgresClient{}).Close())
	assert.NoError(t, (&RedisClient{}).Close())
}
