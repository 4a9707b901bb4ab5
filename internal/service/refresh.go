package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/asherpoirier/streamvault/internal/models"
	"github.com/asherpoirier/streamvault/internal/playlist"
	"github.com/asherpoirier/streamvault/internal/store"
)

// ErrDuplicateProvider is returned by Create when a playlist with the same
// provider name already exists.
var ErrDuplicateProvider = errors.New("provider already exists")

// Create fetches an M3U8 URL, parses it, and stores the playlist with its
// channels under the given provider name. Provider names are unique.
func Create(ctx context.Context, s store.Store, providerName, m3u8URL, userAgent string, timeout time.Duration) (*models.Playlist, error) {
	if providerName == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	if m3u8URL == "" {
		return nil, fmt.Errorf("m3u8 URL is required")
	}

	if _, err := s.GetPlaylistByProvider(ctx, providerName); err == nil {
		return nil, ErrDuplicateProvider
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check provider: %w", err)
	}

	channels, err := playlist.Fetch(ctx, m3u8URL, userAgent, timeout)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	pl := &models.Playlist{
		ID:           uuid.NewString(),
		ProviderName: providerName,
		M3U8URL:      m3u8URL,
		Channels:     channels,
	}
	if err := s.CreatePlaylist(ctx, pl); err != nil {
		return nil, fmt.Errorf("CreatePlaylist: %w", err)
	}
	return pl, nil
}

// Refresh re-fetches a playlist's source URL and replaces its channel set.
// Channels that disappeared upstream are dropped; the playlist row and its
// provider name are untouched.
func Refresh(ctx context.Context, s store.Store, playlistID, userAgent string, timeout time.Duration) (channelCount int, err error) {
	pl, err := s.GetPlaylistByID(ctx, playlistID)
	if err != nil {
		return 0, err
	}

	channels, err := playlist.Fetch(ctx, pl.M3U8URL, userAgent, timeout)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}

	if err := s.ReplacePlaylistChannels(ctx, playlistID, channels); err != nil {
		return 0, fmt.Errorf("ReplacePlaylistChannels: %w", err)
	}
	return len(channels), nil
}
