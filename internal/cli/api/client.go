// Package api — HTTP-клиент серверного API MediaKeeper.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Client держит базовый URL, auth-токен и транспорт.
type Client struct {
	BaseURL   string
	TokenFile string
	HTTP      *http.Client

	token string
}

// NewClient создаёт клиент и подгружает сохранённый токен, если он есть.
func NewClient(baseURL, tokenFile string) *Client {
	c := &Client{BaseURL: baseURL, TokenFile: tokenFile, HTTP: http.DefaultClient}
	if b, err := os.ReadFile(tokenFile); err == nil {
		c.token = strings.TrimSpace(string(b))
	}
	return c
}

// do выполняет запрос с auth-cookie и читает тело целиком.
func (c *Client) do(req *http.Request) (*http.Response, []byte, error) {
	if c.token != "" {
		req.Header.Set("Cookie", "auth_token="+c.token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, body, nil
}

// PostJSON отправляет JSON POST и декодирует JSON-ответ в out (если out != nil).
func (c *Client) PostJSON(path string, payload, out any) (int, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, body, err := c.do(req)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// GetJSON выполняет GET и декодирует JSON-ответ в out.
func (c *Client) GetJSON(path string, out any) (int, error) {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return 0, err
	}
	resp, body, err := c.do(req)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// Delete выполняет DELETE без тела.
func (c *Client) Delete(path string) (int, error) {
	req, err := http.NewRequest(http.MethodDelete, c.BaseURL+path, nil)
	if err != nil {
		return 0, err
	}
	resp, body, err := c.do(req)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.StatusCode, nil
}

// Login выпускает auth-cookie на сервере и сохраняет токен в файл.
func (c *Client) Login(userID string) error {
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/api/user/login",
		strings.NewReader(fmt.Sprintf(`{"user_id":%q}`, userID)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("login failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == "auth_token" && ck.Value != "" {
			c.token = ck.Value
			return os.WriteFile(c.TokenFile, []byte(ck.Value), 0o600)
		}
	}
	return fmt.Errorf("no auth cookie in response")
}
