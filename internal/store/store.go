package store

import (
	"context"
	"errors"

	"github.com/asherpoirier/streamvault/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines persistence for users, playlists, and their channels.
type Store interface {
	// CreateUser inserts a new user. The ID must be set by the caller.
	CreateUser(ctx context.Context, u *models.User) error
	// GetUserByUsername returns a user by username, or ErrNotFound.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// GetUserByID returns a user by id, or ErrNotFound.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// CountUsers returns the total number of users.
	CountUsers(ctx context.Context) (int, error)
	// ListUsers returns all users ordered by creation time.
	ListUsers(ctx context.Context) ([]models.User, error)
	// DeleteUser removes a user by id. ErrNotFound when absent.
	DeleteUser(ctx context.Context, id string) error

	// CreatePlaylist inserts a playlist and its channels in one transaction.
	CreatePlaylist(ctx context.Context, p *models.Playlist) error
	// GetPlaylistByID returns a playlist with its channels, or ErrNotFound.
	GetPlaylistByID(ctx context.Context, id string) (*models.Playlist, error)
	// GetPlaylistByProvider returns a playlist by provider name, or ErrNotFound.
	// Channels are not loaded; callers wanting them use GetPlaylistByID.
	GetPlaylistByProvider(ctx context.Context, name string) (*models.Playlist, error)
	// ListPlaylists returns all playlists with channel counts but without
	// channel bodies.
	ListPlaylists(ctx context.Context) ([]models.Playlist, error)
	// ReplacePlaylistChannels swaps a playlist's channel set atomically and
	// bumps updated_at. ErrNotFound when the playlist is absent.
	ReplacePlaylistChannels(ctx context.Context, playlistID string, channels []models.Channel) error
	// DeletePlaylist removes a playlist and its channels. ErrNotFound when absent.
	DeletePlaylist(ctx context.Context, id string) error

	// ListChannels returns channels across all playlists matching the filter,
	// annotated with their provider.
	ListChannels(ctx context.Context, filter ChannelFilter) ([]models.ChannelWithProvider, error)
	// ListProviders returns one summary row per playlist.
	ListProviders(ctx context.Context) ([]models.ProviderSummary, error)
}

// ChannelFilter holds optional filters for listing channels.
type ChannelFilter struct {
	Search   string // case-insensitive substring match on channel name or group
	Provider string // case-insensitive exact match on provider name
	Limit    int    // default 500, max 5000
	Offset   int
}
