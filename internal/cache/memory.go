package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/hellolink/internal/util/atomicwrite"
)

// memoryClient implementa Client sobre go-cache.
// Con path != "" cada escritura persiste un snapshot JSON con escritura atómica.
type memoryClient struct {
	prefix string
	path   string
	c      *gocache.Cache

	saveMu sync.Mutex
	hits   atomic.Int64
	misses atomic.Int64
}

type fileEntry struct {
	Value     string `json:"v"`
	ExpiresAt int64  `json:"exp,omitempty"` // unix nano, 0 = no expira
}

// NewMemory crea un cliente en memoria. Si path existe se carga.
func NewMemory(prefix, path string) (*memoryClient, error) {
	m := &memoryClient{
		prefix: prefix,
		path:   path,
		c:      gocache.New(gocache.NoExpiration, time.Minute),
	}
	if path != "" {
		if err := m.load(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *memoryClient) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.c.Get(prefixed(m.prefix, key))
	if !ok {
		m.misses.Add(1)
		return "", ErrNotFound
	}
	m.hits.Add(1)
	s, _ := v.(string)
	return s, nil
}

func (m *memoryClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(prefixed(m.prefix, key), value, ttl)
	return m.save()
}

func (m *memoryClient) Delete(ctx context.Context, key string) error {
	m.c.Delete(prefixed(m.prefix, key))
	return m.save()
}

func (m *memoryClient) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.c.Get(prefixed(m.prefix, key))
	return ok, nil
}

func (m *memoryClient) Ping(ctx context.Context) error { return nil }

func (m *memoryClient) Close() error {
	return m.save()
}

func (m *memoryClient) Stats(ctx context.Context) (Stats, error) {
	return Stats{
		Driver: "memory",
		Keys:   int64(m.c.ItemCount()),
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
	}, nil
}

func (m *memoryClient) save() error {
	if m.path == "" {
		return nil
	}
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	items := m.c.Items() // sólo no expirados
	out := make(map[string]fileEntry, len(items))
	for k, it := range items {
		s, ok := it.Object.(string)
		if !ok {
			continue
		}
		out[k] = fileEntry{Value: s, ExpiresAt: it.Expiration}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("cache: encode snapshot: %w", err)
	}
	return atomicwrite.AtomicWriteFile(m.path, b, 0o600)
}

func (m *memoryClient) load() error {
	b, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache: read snapshot: %w", err)
	}
	if len(b) == 0 {
		return nil
	}
	var in map[string]fileEntry
	if err := json.Unmarshal(b, &in); err != nil {
		return fmt.Errorf("cache: decode snapshot %s: %w", m.path, err)
	}
	now := time.Now().UnixNano()
	for k, e := range in {
		if e.ExpiresAt == 0 {
			m.c.Set(k, e.Value, gocache.NoExpiration)
			continue
		}
		if e.ExpiresAt > now {
			m.c.Set(k, e.Value, time.Duration(e.ExpiresAt-now))
		}
	}
	return nil
}
