// Package telegram is a minimal Bot API client covering long polling,
// messages, and inline keyboards. No third-party SDK, just the handful of
// endpoints the bot needs.
package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiBase = "https://api.telegram.org/bot"

type Client struct {
	Token      string
	HTTPClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		Token: token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetUpdates long-polls for new updates past the given offset.
func (c *Client) GetUpdates(offset int) ([]Update, error) {
	url := fmt.Sprintf("%s%s/getUpdates?offset=%d&timeout=10", apiBase, c.Token, offset)
	resp, err := c.HTTPClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch updates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse json response: %w", err)
	}
	if !apiResp.Ok {
		return nil, fmt.Errorf("telegram api error: %d %s", apiResp.ErrorCode, apiResp.Description)
	}
	return apiResp.Result, nil
}

// SendMessage sends an HTML-formatted text message and returns its ID.
func (c *Client) SendMessage(chatID int64, text string) (int, error) {
	return c.SendMessageComplex(SendMessageRequest{ChatID: chatID, Text: text})
}

// SendMessageComplex sends a message with full request control.
func (c *Client) SendMessageComplex(req SendMessageRequest) (int, error) {
	if req.ParseMode == "" {
		req.ParseMode = "HTML"
	}
	var result struct {
		MessageID int `json:"message_id"`
	}
	if err := c.call("sendMessage", req, &result); err != nil {
		return 0, err
	}
	return result.MessageID, nil
}

// EditMessageText rewrites a sent message, replacing its inline keyboard.
func (c *Client) EditMessageText(chatID int64, messageID int, text string, replyMarkup interface{}) error {
	req := struct {
		ChatID      int64       `json:"chat_id"`
		MessageID   int         `json:"message_id"`
		Text        string      `json:"text"`
		ParseMode   string      `json:"parse_mode"`
		ReplyMarkup interface{} `json:"reply_markup,omitempty"`
	}{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: replyMarkup,
	}
	return c.call("editMessageText", req, nil)
}

// AnswerCallbackQuery acknowledges a button press, optionally with a toast.
func (c *Client) AnswerCallbackQuery(callbackQueryID string, text string) error {
	req := struct {
		CallbackQueryID string `json:"callback_query_id"`
		Text            string `json:"text,omitempty"`
	}{
		CallbackQueryID: callbackQueryID,
		Text:            text,
	}
	return c.call("answerCallbackQuery", req, nil)
}

// SetMyCommands registers the command list shown in the chat UI.
func (c *Client) SetMyCommands(commands []BotCommand) error {
	req := struct {
		Commands []BotCommand `json:"commands"`
	}{Commands: commands}
	return c.call("setMyCommands", req, nil)
}

// call posts a JSON request to one Bot API method and decodes the result.
func (c *Client) call(method string, req interface{}, result interface{}) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s%s/%s", apiBase, c.Token, method)
	resp, err := c.HTTPClient.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var apiResp struct {
		Ok          bool            `json:"ok"`
		Result      json.RawMessage `json:"result"`
		Description string          `json:"description"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("parse %s response: %w", method, err)
	}
	if !apiResp.Ok {
		return fmt.Errorf("%s api error: %s", method, apiResp.Description)
	}
	if result != nil {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("parse %s result: %w", method, err)
		}
	}
	return nil
}
