package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mfbot/hofwatch/internal/tracker"
)

type fakeServerStore struct {
	mu      sync.Mutex
	ids     map[string]tracker.ServerID
	next    tracker.ServerID
	upserts int
}

func newFakeServerStore() *fakeServerStore {
	return &fakeServerStore{ids: make(map[string]tracker.ServerID)}
}

func (s *fakeServerStore) UpsertServer(_ context.Context, url string) (tracker.ServerID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if id, ok := s.ids[url]; ok {
		return id, nil
	}
	s.next++
	s.ids[url] = s.next
	return s.next, nil
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"game.example.com", "https://game.example.com"},
		{"http://game.example.com/some/path?q=1#frag", "https://game.example.com"},
		{"https://Game.Example.com:8443/", "https://game.example.com:8443"},
		{"  s1.sfgame.net  ", "https://s1.sfgame.net"},
	}
	for _, tt := range tests {
		got, err := Canonicalize(tt.raw)
		require.NoError(t, err, tt.raw)
		require.Equal(t, tt.want, got)
	}

	for _, raw := range []string{"", "ftp://game.example.com", "https://", "://bad"} {
		_, err := Canonicalize(raw)
		require.ErrorIs(t, err, tracker.ErrInvalidServer, raw)
	}
}

func TestResolveSameServerDifferentForms(t *testing.T) {
	t.Parallel()

	store := newFakeServerStore()
	r := New(store, zap.NewNop())
	ctx := context.Background()

	first, err := r.Resolve(ctx, "game.example.com")
	require.NoError(t, err)

	second, err := r.Resolve(ctx, "https://game.example.com/some/path")
	require.NoError(t, err)
	require.Equal(t, first, second)

	// second resolution hit the cache
	require.Equal(t, 1, store.upserts)
}

func TestResolveConcurrentFirstSight(t *testing.T) {
	t.Parallel()

	store := newFakeServerStore()
	r := New(store, zap.NewNop())

	const callers = 16
	ids := make([]tracker.ServerID, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.Resolve(context.Background(), "s3.sfgame.net")
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = id
		}()
	}
	wg.Wait()

	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
	require.Len(t, store.ids, 1)
}

type failingStore struct{}

func (failingStore) UpsertServer(context.Context, string) (tracker.ServerID, error) {
	return 0, errors.New("connection refused")
}

func TestResolveStoreErrorNotCached(t *testing.T) {
	t.Parallel()

	r := New(failingStore{}, zap.NewNop())
	_, err := r.Resolve(context.Background(), "game.example.com")
	require.Error(t, err)
	require.NotErrorIs(t, err, tracker.ErrInvalidServer)
}
