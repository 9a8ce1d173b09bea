package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInt_Hit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewWithClient(client)

	mock.ExpectGet("waiting_list_abc").SetVal("42")

	v, ok, err := r.GetInt(context.Background(), "waiting_list_abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInt_MissIsNotAnError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewWithClient(client)

	mock.ExpectGet("waiting_list_missing").RedisNil()

	v, ok, err := r.GetInt(context.Background(), "waiting_list_missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInt_ServerError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewWithClient(client)

	mock.ExpectGet("waiting_list_abc").SetErr(errors.New("connection reset"))

	_, ok, err := r.GetInt(context.Background(), "waiting_list_abc")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestSetInt(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewWithClient(client)

	mock.ExpectSet("waiting_list_count", int64(1200), 5*time.Minute).SetVal("OK")

	err := r.SetInt(context.Background(), "waiting_list_count", 1200, 5*time.Minute)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewWithClient(client)

	mock.ExpectDel("waiting_list_abc").SetVal(1)

	err := r.Delete(context.Background(), "waiting_list_abc")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
