package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrChatDisabled = errors.New("chat channel not configured")

// ChatClient posts to a Telegram-style bot API: POST {BaseURL}/bot{Token}/sendMessage.
type ChatClient struct {
	BaseURL string
	Token   string
	ChatID  string
	HTTP    *http.Client
}

func NewChatClient(baseURL, token, chatID string) *ChatClient {
	return &ChatClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		ChatID:  chatID,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *ChatClient) Enabled() bool { return c.Token != "" && c.ChatID != "" }

type sendMessageReq struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResp struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (c *ChatClient) Send(ctx context.Context, text string) error {
	if !c.Enabled() {
		return ErrChatDisabled
	}
	body, err := json.Marshal(sendMessageReq{ChatID: c.ChatID, Text: text})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/bot"+c.Token+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		// the url carries the token
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out apiResp
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode/100 != 2 || !out.OK {
		desc := out.Description
		if desc == "" {
			desc = strings.TrimSpace(string(raw))
		}
		return fmt.Errorf("send message: status %d: %s", resp.StatusCode, desc)
	}
	return nil
}
