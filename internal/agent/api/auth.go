// В этом файле описаны методы клиента для работы
// с эндпоинтами аутентификации: регистрация, вход, обновление токена, выход,
// проверка имени и получение информации о текущем пользователе.
package api

import (
	"net/url"

	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
)

// Register выполняет регистрацию пользователя на сервере.
//
// Метод отправляет POST запрос на /auth/register и возвращает RegisterResponse.
// В случае ошибки возвращает непустую ошибку и пустой ответ.
func (c *Client) Register(username, password string) (models.RegisterResponse, error) {
	var resp models.RegisterResponse
	err := c.PostJSON("/auth/register", models.RegisterRequest{Username: username, Password: password}, &resp, "")
	return resp, err
}

// Login выполняет вход пользователя и получает пару токенов.
func (c *Client) Login(username, password string) (models.TokenResponse, error) {
	var resp models.TokenResponse
	err := c.PostJSON("/auth/login", models.LoginRequest{Username: username, Password: password}, &resp, "")
	return resp, err
}

// Refresh обновляет пару токенов по refresh токену.
func (c *Client) Refresh(refreshToken string) (models.TokenResponse, error) {
	var resp models.TokenResponse
	err := c.PostJSON("/auth/refresh", models.RefreshRequest{RefreshToken: refreshToken}, &resp, "")
	return resp, err
}

// Exists проверяет, занято ли имя пользователя (точное совпадение).
func (c *Client) Exists(username string) (bool, error) {
	var resp models.ExistsResponse
	err := c.GetJSON("/auth/exists?username="+url.QueryEscape(username), &resp, "")
	return resp.Exists, err
}

// Logout отзывает все refresh-сессии пользователя.
func (c *Client) Logout(accessToken string) error {
	return c.PostJSON("/auth/logout", nil, nil, accessToken)
}

// Me запрашивает информацию о текущем пользователе.
func (c *Client) Me(accessToken string) (models.MeResponse, error) {
	var resp models.MeResponse
	err := c.GetJSON("/me", &resp, accessToken)
	return resp, err
}
