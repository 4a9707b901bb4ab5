package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/asherpoirier/streamvault/internal/models"
)

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// --- users ---

func (p *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO users (id, username, password_hash, is_admin)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		u.ID, u.Username, u.PasswordHash, u.IsAdmin,
	).Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("CreateUser: %w", err)
	}
	return nil
}

func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return p.getUser(ctx,
		`SELECT id, username, password_hash, is_admin, created_at FROM users WHERE username = $1`,
		username)
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return p.getUser(ctx,
		`SELECT id, username, password_hash, is_admin, created_at FROM users WHERE id = $1`,
		id)
}

func (p *Postgres) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := p.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getUser: %w", err)
	}
	return &u, nil
}

func (p *Postgres) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountUsers: %w", err)
	}
	return n, nil
}

func (p *Postgres) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, username, password_hash, is_admin, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("ListUsers: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListUsers scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (p *Postgres) DeleteUser(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("DeleteUser: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- playlists ---

func (p *Postgres) CreatePlaylist(ctx context.Context, pl *models.Playlist) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("CreatePlaylist begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO playlists (id, provider_name, m3u8_url)
		 VALUES ($1, $2, $3)
		 RETURNING created_at, updated_at`,
		pl.ID, pl.ProviderName, pl.M3U8URL,
	).Scan(&pl.CreatedAt, &pl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("CreatePlaylist insert: %w", err)
	}

	if err := insertChannels(ctx, tx, pl.ID, pl.Channels); err != nil {
		return err
	}
	pl.ChannelCount = len(pl.Channels)

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("CreatePlaylist commit: %w", err)
	}
	return nil
}

func (p *Postgres) GetPlaylistByID(ctx context.Context, id string) (*models.Playlist, error) {
	var pl models.Playlist
	err := p.pool.QueryRow(ctx,
		`SELECT id, provider_name, m3u8_url, created_at, updated_at
		 FROM playlists WHERE id = $1`, id,
	).Scan(&pl.ID, &pl.ProviderName, &pl.M3U8URL, &pl.CreatedAt, &pl.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetPlaylistByID: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT name, url, logo, channel_group
		 FROM channels WHERE playlist_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("GetPlaylistByID channels: %w", err)
	}
	defer rows.Close()

	pl.Channels = []models.Channel{}
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.Name, &ch.URL, &ch.Logo, &ch.Group); err != nil {
			return nil, fmt.Errorf("GetPlaylistByID scan: %w", err)
		}
		pl.Channels = append(pl.Channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	pl.ChannelCount = len(pl.Channels)
	return &pl, nil
}

func (p *Postgres) GetPlaylistByProvider(ctx context.Context, name string) (*models.Playlist, error) {
	var pl models.Playlist
	err := p.pool.QueryRow(ctx,
		`SELECT p.id, p.provider_name, p.m3u8_url, p.created_at, p.updated_at,
		        (SELECT COUNT(*) FROM channels c WHERE c.playlist_id = p.id)
		 FROM playlists p WHERE p.provider_name = $1`, name,
	).Scan(&pl.ID, &pl.ProviderName, &pl.M3U8URL, &pl.CreatedAt, &pl.UpdatedAt, &pl.ChannelCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetPlaylistByProvider: %w", err)
	}
	return &pl, nil
}

func (p *Postgres) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT p.id, p.provider_name, p.m3u8_url, p.created_at, p.updated_at,
		        (SELECT COUNT(*) FROM channels c WHERE c.playlist_id = p.id)
		 FROM playlists p ORDER BY p.created_at`)
	if err != nil {
		return nil, fmt.Errorf("ListPlaylists: %w", err)
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		var pl models.Playlist
		if err := rows.Scan(&pl.ID, &pl.ProviderName, &pl.M3U8URL,
			&pl.CreatedAt, &pl.UpdatedAt, &pl.ChannelCount); err != nil {
			return nil, fmt.Errorf("ListPlaylists scan: %w", err)
		}
		playlists = append(playlists, pl)
	}
	return playlists, rows.Err()
}

func (p *Postgres) ReplacePlaylistChannels(ctx context.Context, playlistID string, channels []models.Channel) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ReplacePlaylistChannels begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE playlists SET updated_at = NOW() WHERE id = $1`, playlistID)
	if err != nil {
		return fmt.Errorf("ReplacePlaylistChannels touch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM channels WHERE playlist_id = $1`, playlistID); err != nil {
		return fmt.Errorf("ReplacePlaylistChannels wipe: %w", err)
	}
	if err := insertChannels(ctx, tx, playlistID, channels); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ReplacePlaylistChannels commit: %w", err)
	}
	return nil
}

func (p *Postgres) DeletePlaylist(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("DeletePlaylist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// insertChannels bulk-loads a playlist's channels preserving playlist order.
func insertChannels(ctx context.Context, tx pgx.Tx, playlistID string, channels []models.Channel) error {
	if len(channels) == 0 {
		return nil
	}
	rows := make([][]any, len(channels))
	for i, ch := range channels {
		rows[i] = []any{playlistID, i, ch.Name, ch.URL, ch.Logo, ch.Group}
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"channels"},
		[]string{"playlist_id", "position", "name", "url", "logo", "channel_group"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("insertChannels: %w", err)
	}
	return nil
}

// --- channels across playlists ---

func (p *Postgres) ListChannels(ctx context.Context, filter ChannelFilter) ([]models.ChannelWithProvider, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	if limit > 5000 {
		limit = 5000
	}

	query := `SELECT c.name, c.url, c.logo, c.channel_group, p.provider_name, p.id
	          FROM channels c JOIN playlists p ON p.id = c.playlist_id`
	args := []any{}
	where := ""
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" (c.name ILIKE $%d OR c.channel_group ILIKE $%d)", len(args), len(args))
	}
	if filter.Provider != "" {
		if where != "" {
			where += " AND"
		}
		args = append(args, filter.Provider)
		where += fmt.Sprintf(" LOWER(p.provider_name) = LOWER($%d)", len(args))
	}
	if where != "" {
		query += " WHERE" + where
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY p.provider_name, c.position LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListChannels: %w", err)
	}
	defer rows.Close()

	channels := []models.ChannelWithProvider{}
	for rows.Next() {
		var ch models.ChannelWithProvider
		if err := rows.Scan(&ch.Name, &ch.URL, &ch.Logo, &ch.Group, &ch.ProviderName, &ch.PlaylistID); err != nil {
			return nil, fmt.Errorf("ListChannels scan: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (p *Postgres) ListProviders(ctx context.Context) ([]models.ProviderSummary, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT p.id, p.provider_name,
		        (SELECT COUNT(*) FROM channels c WHERE c.playlist_id = p.id)
		 FROM playlists p ORDER BY p.provider_name`)
	if err != nil {
		return nil, fmt.Errorf("ListProviders: %w", err)
	}
	defer rows.Close()

	providers := []models.ProviderSummary{}
	for rows.Next() {
		var pr models.ProviderSummary
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.ChannelCount); err != nil {
			return nil, fmt.Errorf("ListProviders scan: %w", err)
		}
		providers = append(providers, pr)
	}
	return providers, rows.Err()
}
