package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/asherpoirier/streamvault/internal/auth"
	"github.com/asherpoirier/streamvault/internal/models"
	"github.com/asherpoirier/streamvault/internal/store"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        userResponse `json:"user"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999Z07:00"),
	}
}

// handleSetup creates the first admin account. Once any user exists the
// endpoint is closed for good.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	n, err := s.store.CountUsers(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if n > 0 {
		writeErr(w, http.StatusForbidden, fmt.Errorf("setup already completed, contact admin for access"))
		return
	}

	user, err := s.createUser(r, req, true)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	token, err := s.auth.IssueToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        toUserResponse(user),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		writeErr(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
		return
	}

	token, err := s.auth.IssueToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        toUserResponse(user),
	})
}

// handleRegister lets an admin create a regular account. The created user
// logs in themselves, so no token is issued here.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	if _, err := s.store.GetUserByUsername(r.Context(), req.Username); err == nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("username already exists"))
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	user, err := s.createUser(r, req, false)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: "",
		TokenType:   "bearer",
		User:        toUserResponse(user),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	user, err := s.store.GetUserByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("user not found"))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	id := r.PathValue("id")
	if id == claims.Subject {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("cannot delete yourself"))
		return
	}

	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("user %s not found", id))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

// --- helpers ---

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return req, false
	}
	if req.Username == "" || req.Password == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("username and password are required"))
		return req, false
	}
	return req, true
}

func (s *Server) createUser(r *http.Request, req credentialsRequest, isAdmin bool) (*models.User, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		return nil, err
	}
	return user, nil
}
