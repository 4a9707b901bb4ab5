package models

import "time"

// Playlist is a stored provider playlist: the source M3U8 URL plus the
// channel list captured at the last fetch.
type Playlist struct {
	ID           string    `json:"id"`
	ProviderName string    `json:"provider_name"`
	M3U8URL      string    `json:"m3u8_url"`
	Channels     []Channel `json:"channels"`
	ChannelCount int       `json:"channel_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProviderSummary is the channels-free view returned by /api/providers.
type ProviderSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ChannelCount int    `json:"channel_count"`
}
