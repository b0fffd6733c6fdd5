// HTTP-хендлеры регистрации, логина, refresh токенов
package api

import (
	"net/http"

	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
)

// Register обрабатывает регистрацию пользователя.
//
// Ответы:
//   - 201 Created: регистрация успешна;
//   - 400 Bad Request: неверный JSON или невалидные входные данные;
//   - 409 Conflict: пользователь уже существует;
//   - 500 Internal Server Error: прочие ошибки.
//
// @Summary      Register
// @Description  Creates a user. Username is unique and case-sensitive.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body models.RegisterRequest true "Credentials"
// @Success      201 {object} models.RegisterResponse
// @Failure      400 {object} models.ErrorResponse "Invalid input or bad JSON"
// @Failure      409 {object} models.ErrorResponse "Username already exists"
// @Failure      500 {object} models.ErrorResponse "Internal server error"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, "register", err)
		return
	}

	u, err := h.Svc.Auth.Create(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, "register", err)
		return
	}

	writeJSON(w, http.StatusCreated, models.RegisterResponse{
		UserID:    u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	})
}

// Login обрабатывает вход пользователя и выдачу пары токенов.
//
// Ответы:
//   - 200 OK: успешный вход;
//   - 400 Bad Request: неверный JSON или невалидные входные данные;
//   - 401 Unauthorized: неверные учётные данные;
//   - 500 Internal Server Error: прочие ошибки.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body models.LoginRequest true "Credentials"
// @Success      200 {object} models.TokenResponse
// @Failure      400 {object} models.ErrorResponse
// @Failure      401 {object} models.ErrorResponse "Invalid credentials"
// @Failure      500 {object} models.ErrorResponse
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, "login", err)
		return
	}

	pair, err := h.Svc.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh обрабатывает обновление access-токена по refresh-токену.
//
// Ответы:
//   - 200 OK: успешное обновление токенов;
//   - 400 Bad Request: неверный JSON или невалидные входные данные;
//   - 401 Unauthorized: refresh токен недействителен/просрочен/отозван;
//   - 500 Internal Server Error: прочие ошибки.
//
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body models.RefreshRequest true "Refresh token"
// @Success      200 {object} models.TokenResponse
// @Failure      400 {object} models.ErrorResponse
// @Failure      401 {object} models.ErrorResponse
// @Failure      500 {object} models.ErrorResponse
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, "refresh", err)
		return
	}

	pair, err := h.Svc.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, r, "refresh", err)
		return
	}

	writeJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Exists сообщает, занят ли username.
//
// @Summary      Username exists
// @Tags         auth
// @Produce      json
// @Param        username query string true "Username (exact match)"
// @Success      200 {object} models.ExistsResponse
// @Failure      500 {object} models.ErrorResponse
// @Router       /auth/exists [get]
func (h *Handler) Exists(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")

	ok, err := h.Svc.Auth.Exists(r.Context(), username)
	if err != nil {
		h.fail(w, r, "exists", err)
		return
	}
	writeJSON(w, http.StatusOK, models.ExistsResponse{Exists: ok})
}

// Logout отзывает все refresh-сессии и сбрасывает чат.
//
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401 {object} models.ErrorResponse
// @Failure      500 {object} models.ErrorResponse
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Auth.Logout(r.Context(), id); err != nil {
		h.fail(w, r, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me возвращает текущего пользователя.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} models.MeResponse
// @Failure      401 {object} models.ErrorResponse
// @Router       /me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	u, err := h.Svc.Auth.Me(r.Context(), id)
	if err != nil {
		// пользователь удалён, а токен ещё жив
		if status, _ := errorStatus(err); status == http.StatusNotFound {
			WriteError(w, http.StatusUnauthorized, serr.ErrUnauthorized)
			return
		}
		h.fail(w, r, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, models.MeResponse{UserID: u.ID, Username: u.Username})
}
