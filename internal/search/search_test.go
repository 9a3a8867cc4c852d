package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellolink/internal/domain/linkerr"
	"github.com/dropDatabas3/hellolink/internal/domain/repository"
	"github.com/dropDatabas3/hellolink/internal/notify"
)

// stubClient implementa QueryUsers sobre una lista fija; el resto no se usa.
type stubClient struct {
	repository.IdentityClient
	users     []repository.RemoteIdentity
	err       error
	lastOrder *repository.UserOrder
	lastLimit int
}

func (s *stubClient) QueryUsers(_ context.Context, f repository.UserFilter, o *repository.UserOrder, limit int) ([]repository.RemoteIdentity, error) {
	s.lastOrder, s.lastLimit = o, limit
	if s.err != nil {
		return nil, s.err
	}
	out := []repository.RemoteIdentity{}
	for _, u := range s.users {
		if strings.Contains(u.Username, f.UsernameContains) {
			out = append(out, u)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type captureSink struct{ notices []notify.Notice }

func (c *captureSink) Notify(_ context.Context, n notify.Notice) { c.notices = append(c.notices, n) }

var users = []repository.RemoteIdentity{
	{ID: "u3", Username: "malia", CreatedAt: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)},
	{ID: "u1", Username: "alice", CreatedAt: time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)},
	{ID: "u2", Username: "bob", CreatedAt: time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)},
}

func TestByUsername(t *testing.T) {
	ctx := context.Background()
	sink := &captureSink{}
	s := New(&stubClient{users: users}, sink, 50)

	got, err := s.ByUsername(ctx, "ali")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.ByUsername(ctx, "zz")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	require.Len(t, sink.notices, 2)
	assert.Equal(t, notify.LevelSuccess, sink.notices[0].Level)
	assert.Equal(t, `2 users were found containing "ali" in their username`, sink.notices[0].Message)
	assert.Equal(t, notify.LevelWarning, sink.notices[1].Level)
	assert.Equal(t, `No users were found containing "zz" in their username`, sink.notices[1].Message)
}

func TestByUsername_TransportError(t *testing.T) {
	sink := &captureSink{}
	s := New(&stubClient{err: errors.New("dial tcp: refused")}, sink, 50)

	got, err := s.ByUsername(context.Background(), "a")
	assert.Equal(t, linkerr.KindNetwork, linkerr.KindOf(err))
	assert.NotNil(t, got)
	assert.Empty(t, got)
	require.Len(t, sink.notices, 1)
	assert.Equal(t, notify.LevelError, sink.notices[0].Level)
}

func TestLatest(t *testing.T) {
	ctx := context.Background()
	sink := &captureSink{}
	client := &stubClient{users: users}

	u, err := New(client, sink, 50).Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "malia", u.Username)
	assert.Equal(t, &repository.UserOrder{By: "createdAt", Desc: true}, client.lastOrder)
	assert.Equal(t, 1, client.lastLimit)
	assert.Equal(t, "malia is the latest user, created on Thu, 01 Feb 2024 10:00:00 UTC", sink.notices[0].Message)

	u, err = New(&stubClient{}, sink, 50).Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.Equal(t, "No users where created yet!", sink.notices[1].Message)
	assert.Equal(t, notify.LevelWarning, sink.notices[1].Level)
}
