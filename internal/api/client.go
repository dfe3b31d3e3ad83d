package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0-th/antenna-client/internal/cards"
	"github.com/0-th/antenna-client/pkg/types"
)

// Client fetches the REST context a session needs before joining a channel:
// the authenticated user, the room, the user's profiles, and the static
// card-definition table. Errors carry the server's plain-text reason.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	logger *zap.Logger
}

func New(baseURL, token string, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &Client{
		base:   u,
		token:  token,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}, nil
}

func (c *Client) Me(ctx context.Context) (types.User, error) {
	var user types.User
	err := c.get(ctx, "/me", &user)
	return user, err
}

func (c *Client) Room(ctx context.Context, roomID string) (types.Room, error) {
	var room types.Room
	err := c.get(ctx, "/room/"+roomID, &room)
	return room, err
}

func (c *Client) MyProfiles(ctx context.Context) ([]types.Profile, error) {
	var profiles []types.Profile
	err := c.get(ctx, "/profile/my", &profiles)
	return profiles, err
}

// CardTable fetches the static card-definition document.
func (c *Client) CardTable(ctx context.Context) (cards.Table, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/cards", &raw); err != nil {
		return nil, err
	}
	return cards.Parse(raw)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	c.logger.Debug("fetched", zap.String("path", path))
	return nil
}
