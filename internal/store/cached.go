package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/asherpoirier/streamvault/internal/cache"
	"github.com/asherpoirier/streamvault/internal/models"
)

// Cache TTLs for different entity types.
const (
	ttlPlaylists = 2 * time.Minute
	ttlPlaylist  = 5 * time.Minute
	ttlChannels  = 1 * time.Minute
	ttlProviders = 2 * time.Minute
)

// CachedStore wraps a Store with a Redis caching layer.
// Read-heavy operations are served from cache when possible;
// write operations invalidate the relevant cache keys.
// User operations are never cached: auth reads must see writes immediately.
type CachedStore struct {
	inner Store
	cache *cache.Redis
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis) *CachedStore {
	return &CachedStore{inner: inner, cache: c}
}

// --- cached read operations ---

func (c *CachedStore) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	const key = "playlists:all"
	if v, err := cache.Get[[]models.Playlist](ctx, c.cache, key); err == nil {
		return v, nil
	}
	playlists, err := c.inner.ListPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, playlists, ttlPlaylists); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return playlists, nil
}

func (c *CachedStore) GetPlaylistByID(ctx context.Context, id string) (*models.Playlist, error) {
	key := "playlist:" + id
	if v, err := cache.Get[models.Playlist](ctx, c.cache, key); err == nil {
		return &v, nil
	}
	pl, err := c.inner.GetPlaylistByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, pl, ttlPlaylist); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return pl, nil
}

func (c *CachedStore) ListChannels(ctx context.Context, filter ChannelFilter) ([]models.ChannelWithProvider, error) {
	key := "channels:" + filterHash(filter)
	if v, err := cache.Get[[]models.ChannelWithProvider](ctx, c.cache, key); err == nil {
		return v, nil
	}
	channels, err := c.inner.ListChannels(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, channels, ttlChannels); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return channels, nil
}

func (c *CachedStore) ListProviders(ctx context.Context) ([]models.ProviderSummary, error) {
	const key = "providers:all"
	if v, err := cache.Get[[]models.ProviderSummary](ctx, c.cache, key); err == nil {
		return v, nil
	}
	providers, err := c.inner.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, providers, ttlProviders); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return providers, nil
}

// --- write operations with cache invalidation ---

func (c *CachedStore) CreatePlaylist(ctx context.Context, p *models.Playlist) error {
	if err := c.inner.CreatePlaylist(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, "playlists:all", "providers:all")
	c.invalidatePattern(ctx, "channels:*")
	return nil
}

func (c *CachedStore) ReplacePlaylistChannels(ctx context.Context, playlistID string, channels []models.Channel) error {
	if err := c.inner.ReplacePlaylistChannels(ctx, playlistID, channels); err != nil {
		return err
	}
	c.invalidate(ctx, "playlist:"+playlistID, "playlists:all", "providers:all")
	c.invalidatePattern(ctx, "channels:*")
	return nil
}

func (c *CachedStore) DeletePlaylist(ctx context.Context, id string) error {
	if err := c.inner.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, "playlist:"+id, "playlists:all", "providers:all")
	c.invalidatePattern(ctx, "channels:*")
	return nil
}

// --- passthrough (no caching) ---

func (c *CachedStore) CreateUser(ctx context.Context, u *models.User) error {
	return c.inner.CreateUser(ctx, u)
}

func (c *CachedStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return c.inner.GetUserByUsername(ctx, username)
}

func (c *CachedStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return c.inner.GetUserByID(ctx, id)
}

func (c *CachedStore) CountUsers(ctx context.Context) (int, error) {
	return c.inner.CountUsers(ctx)
}

func (c *CachedStore) ListUsers(ctx context.Context) ([]models.User, error) {
	return c.inner.ListUsers(ctx)
}

func (c *CachedStore) DeleteUser(ctx context.Context, id string) error {
	return c.inner.DeleteUser(ctx, id)
}

func (c *CachedStore) GetPlaylistByProvider(ctx context.Context, name string) (*models.Playlist, error) {
	return c.inner.GetPlaylistByProvider(ctx, name)
}

// --- helpers ---

// invalidate deletes exact cache keys, logging any errors.
func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := cache.Del(ctx, c.cache, keys...); err != nil && err != redis.Nil {
		log.Printf("cache: del %v: %v", keys, err)
	}
}

// invalidatePattern deletes all keys matching the given glob patterns.
func (c *CachedStore) invalidatePattern(ctx context.Context, patterns ...string) {
	for _, p := range patterns {
		if err := cache.DelPattern(ctx, c.cache, p); err != nil {
			log.Printf("cache: del pattern %s: %v", p, err)
		}
	}
}

// filterHash produces a short deterministic hash for a ChannelFilter so it
// can be used as part of a cache key.
func filterHash(f ChannelFilter) string {
	raw := fmt.Sprintf("%s|%s|%d|%d", f.Search, f.Provider, f.Limit, f.Offset)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:8])
}
