// Package telegram is a minimal Bot API client covering what the gateway
// needs: long-polled updates, direct and group messages, and approving
// chat join requests.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type ChatJoinRequest struct {
	Chat Chat  `json:"chat"`
	From User  `json:"from"`
	Date int64 `json:"date"`
}

type Update struct {
	UpdateID        int64            `json:"update_id"`
	Message         *Message         `json:"message"`
	ChatJoinRequest *ChatJoinRequest `json:"chat_join_request"`
}

// apiResponse is the Bot API envelope; description is only set when ok is
// false.
type apiResponse struct {
	Ok          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type Client struct {
	token      string
	base       string
	httpClient *http.Client
}

func New(token string) *Client {
	return &Client{
		token: token,
		base:  defaultAPIBase,
		// must outlast a full long-poll cycle
		httpClient: &http.Client{Timeout: 50 * time.Second},
	}
}

func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.base, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = params.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%s: decoding response: %w", method, err)
	}
	if !envelope.Ok {
		return fmt.Errorf("%s: %s", method, envelope.Description)
	}

	if out != nil {
		return json.Unmarshal(envelope.Result, out)
	}
	return nil
}

// GetUpdates long-polls for up to timeout seconds, returning updates with
// ids >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(timeout))
	params.Set("allowed_updates", `["message","chat_join_request"]`)

	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("text", text)
	return c.call(ctx, "sendMessage", params, nil)
}

func (c *Client) SendMessageHTML(ctx context.Context, chatID int64, text string) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("text", text)
	params.Set("parse_mode", "HTML")
	return c.call(ctx, "sendMessage", params, nil)
}

func (c *Client) ApproveJoinRequest(ctx context.Context, chatID, userID int64) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("user_id", strconv.FormatInt(userID, 10))
	return c.call(ctx, "approveChatJoinRequest", params, nil)
}

// Mention renders an HTML user mention for group announcements.
func Mention(id int64, name string) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, id, html.EscapeString(name))
}
