package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/asherpoirier/streamvault/internal/auth"
	"github.com/asherpoirier/streamvault/internal/cache"
	"github.com/asherpoirier/streamvault/internal/models"
	"github.com/asherpoirier/streamvault/internal/service"
	"github.com/asherpoirier/streamvault/internal/store"
)

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	playlists, err := s.store.ListPlaylists(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	writeJSON(w, http.StatusOK, playlists)
}

type addPlaylistRequest struct {
	ProviderName string `json:"provider_name"`
	M3U8URL      string `json:"m3u8_url"`
}

func (s *Server) handleAddPlaylist(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	var req addPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.ProviderName == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("provider_name is required"))
		return
	}
	if req.M3U8URL == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("m3u8_url is required"))
		return
	}
	if u, err := url.ParseRequestURI(req.M3U8URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("m3u8_url must be a valid http or https URL"))
		return
	}

	pl, err := service.Create(r.Context(), s.store, req.ProviderName, req.M3U8URL, s.cfg.UserAgent, s.cfg.Timeout)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateProvider) {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("provider with this name already exists"))
			return
		}
		writeErr(w, http.StatusBadRequest, fmt.Errorf("failed to load playlist: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, pl)
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	id := r.PathValue("id")

	pl, err := s.store.GetPlaylistByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("playlist not found"))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	id := r.PathValue("id")

	if err := s.store.DeletePlaylist(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("playlist not found"))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Playlist deleted"})
}

// handleRefreshPlaylist re-fetches a playlist's source. With ?async=true
// the work is queued to the background worker instead; that needs Redis.
func (s *Server) handleRefreshPlaylist(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	id := r.PathValue("id")

	if r.URL.Query().Get("async") == "true" {
		s.handleRefreshAsync(w, r, id)
		return
	}

	if _, err := service.Refresh(r.Context(), s.store, id, s.cfg.UserAgent, s.cfg.Timeout); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("playlist not found"))
			return
		}
		writeErr(w, http.StatusBadRequest, fmt.Errorf("refresh: %w", err))
		return
	}

	refreshed, err := s.store.GetPlaylistByID(r.Context(), id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshed)
}

func (s *Server) handleRefreshAsync(w http.ResponseWriter, r *http.Request, id string) {
	if s.rds == nil {
		writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("async refresh requires Redis (REDIS_URL not set)"))
		return
	}

	pl, err := s.store.GetPlaylistByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("playlist not found"))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	job := cache.RefreshJob{PlaylistID: pl.ID, ProviderName: pl.ProviderName}
	if err := cache.Enqueue(r.Context(), s.rds, cache.DefaultQueue, job); err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("enqueue: %w", err))
		return
	}
	log.Printf("refresh queued for %q", pl.ProviderName)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"playlist_id": pl.ID,
		"queued":      true,
	})
}

// --- channels and providers ---

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	q := r.URL.Query()
	filter := store.ChannelFilter{
		Search:   q.Get("search"),
		Provider: q.Get("provider"),
	}

	channels, err := s.store.ListChannels(r.Context(), filter)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if channels == nil {
		channels = []models.ChannelWithProvider{}
	}
	writeJSON(w, http.StatusOK, channels)
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	providers, err := s.store.ListProviders(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if providers == nil {
		providers = []models.ProviderSummary{}
	}
	writeJSON(w, http.StatusOK, providers)
}
