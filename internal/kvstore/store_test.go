package kvstore_test

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/limbo/routinewidget/internal/kvstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendState int

const (
	stateOK backendState = iota
	stateProbeFails
	stateFailAfterProbe
)

// mapBackend is an in-memory Backend whose failures can be switched on.
type mapBackend struct {
	mu     sync.Mutex
	state  backendState
	data   map[string]string
	probed bool
}

func newMapBackend(state backendState) *mapBackend {
	return &mapBackend{state: state, data: make(map[string]string)}
}

var errBackend = errors.New("quota exceeded")

func (m *mapBackend) fail() bool {
	switch m.state {
	case stateProbeFails:
		return true
	case stateFailAfterProbe:
		return m.probed
	}
	return false
}

func (m *mapBackend) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail() {
		return "", false, errBackend
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail() {
		return errBackend
	}
	m.data[key] = value
	return nil
}

func (m *mapBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail() {
		return errBackend
	}
	delete(m.data, key)
	if strings.HasSuffix(key, "__notion_widget_test__") {
		m.probed = true
	}
	return nil
}

func (m *mapBackend) Keys(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail() {
		return nil, errBackend
	}
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func TestStoreBasicOperations(t *testing.T) {
	backend := newMapBackend(stateOK)
	store := kvstore.New(backend)
	require.False(t, store.Degraded())
	assert.NotContains(t, backend.data, "__notion_widget_test__")

	store.Set(kvstore.KeyLastConfig, `{"token":"ntn_x"}`)
	v, ok := store.Get(kvstore.KeyLastConfig)
	assert.True(t, ok)
	assert.Equal(t, `{"token":"ntn_x"}`, v)
	assert.Equal(t, `{"token":"ntn_x"}`, backend.data["notion-widget:last-config"])

	store.Remove(kvstore.KeyLastConfig)
	_, ok = store.Get(kvstore.KeyLastConfig)
	assert.False(t, ok)
}

func TestStoreClearKeepsForeignKeys(t *testing.T) {
	backend := newMapBackend(stateOK)
	backend.data["other-app:theme"] = "dark"
	store := kvstore.New(backend)

	store.Set("a", "1")
	store.Set("b", "2")
	store.Clear()

	_, ok := store.Get("a")
	assert.False(t, ok)
	_, ok = store.Get("b")
	assert.False(t, ok)
	assert.Equal(t, "dark", backend.data["other-app:theme"])
}

func TestStoreFailedProbe(t *testing.T) {
	backend := newMapBackend(stateProbeFails)
	store := kvstore.New(backend)
	assert.True(t, store.Degraded())

	store.Set("k", "v")
	v, ok := store.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Empty(t, backend.data)
}

func TestStoreDegradesPermanently(t *testing.T) {
	backend := newMapBackend(stateFailAfterProbe)
	store := kvstore.New(backend)
	require.False(t, store.Degraded())

	store.Set("k", "v")
	assert.True(t, store.Degraded())
	v, ok := store.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	// healing the backend does not bring the instance back
	backend.state = stateOK
	store.Set("k2", "v2")
	assert.True(t, store.Degraded())
	assert.Empty(t, backend.data)
}

func TestStoreNilBackend(t *testing.T) {
	store := kvstore.NewMemory(kvstore.WithNamespace("test"))
	assert.True(t, store.Degraded())
	store.Set("x", "y")
	v, ok := store.Get("x")
	assert.True(t, ok)
	assert.Equal(t, "y", v)
	store.Clear()
	_, ok = store.Get("x")
	assert.False(t, ok)
}

func TestStoreInstancesDoNotShareMemory(t *testing.T) {
	a := kvstore.NewMemory()
	b := kvstore.NewMemory()
	a.Set("k", "a")
	_, ok := b.Get("k")
	assert.False(t, ok)
}

func TestBoltBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	backend, err := kvstore.OpenBolt(path)
	require.NoError(t, err)
	defer backend.Close()

	_, ok, err := backend.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	store := kvstore.New(backend)
	require.False(t, store.Degraded())
	store.Set("a", "1")
	store.Set("b", "2")
	require.NoError(t, backend.Set("other:c", "3"))

	keys, err := backend.Keys("notion-widget:")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"notion-widget:a", "notion-widget:b"}, keys)

	store.Clear()
	keys, err = backend.Keys("notion-widget:")
	require.NoError(t, err)
	assert.Empty(t, keys)
	v, ok, err := backend.Get("other:c")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestBoltBackendSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	backend, err := kvstore.OpenBolt(path)
	require.NoError(t, err)
	kvstore.New(backend).Set(kvstore.KeyLastConfig, "cfg")
	require.NoError(t, backend.Close())

	backend, err = kvstore.OpenBolt(path)
	require.NoError(t, err)
	defer backend.Close()
	v, ok := kvstore.New(backend).Get(kvstore.KeyLastConfig)
	assert.True(t, ok)
	assert.Equal(t, "cfg", v)
}

func TestRedisBackendUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()

	store := kvstore.New(kvstore.NewRedisBackend(client))
	assert.True(t, store.Degraded())
	store.Set("k", "v")
	v, ok := store.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
