package models

// Channel is one stream entry parsed from an M3U8 playlist.
// Logo and Group come from the EXTINF attributes and may be absent.
// Duplicate names or URLs within a playlist are legal.
type Channel struct {
	Name  string  `json:"name"`
	URL   string  `json:"url"`
	Logo  *string `json:"logo,omitempty"`
	Group *string `json:"group,omitempty"`
}

// ChannelWithProvider is a channel annotated with its owning playlist,
// returned by the aggregated /api/channels endpoint.
type ChannelWithProvider struct {
	Name         string  `json:"name"`
	URL          string  `json:"url"`
	Logo         *string `json:"logo,omitempty"`
	Group        *string `json:"group,omitempty"`
	ProviderName string  `json:"provider_name"`
	PlaylistID   string  `json:"playlist_id"`
}
