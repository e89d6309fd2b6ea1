package heritage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const requestTimeout = 30 * time.Second

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
		log:     log,
	}
}

type sendRequest struct {
	CharacterID string `json:"characterId"`
	Message     string `json:"message"`
	Context     string `json:"context,omitempty"`
}

type sendResponse struct {
	Message wireMessage `json:"message"`
}

// SendMessage submits a user turn and returns the companion's reply. The
// reply is marked JustGenerated so it streams instead of rendering at
// once. Failures come back as-is; retrying is the caller's decision.
func (c *Client) SendMessage(ctx context.Context, characterID, message, chatContext string) (*Message, error) {
	var resp sendResponse
	err := c.postJSON(ctx, "/api/companion/message", sendRequest{
		CharacterID: characterID,
		Message:     message,
		Context:     chatContext,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}
	m := resp.Message.toMessage(true)
	return &m, nil
}

type historyRequest struct {
	CharacterID string `json:"characterId"`
	Limit       int    `json:"limit"`
	LevelID     string `json:"levelId,omitempty"`
}

type historyResponse struct {
	Messages []wireMessage `json:"messages"`
}

// History fetches prior turns, oldest first. Historical messages render
// immediately; their clips play only on explicit replay.
func (c *Client) History(ctx context.Context, characterID string, limit int, levelID string) ([]Message, error) {
	var resp historyResponse
	err := c.postJSON(ctx, "/api/companion/history", historyRequest{
		CharacterID: characterID,
		Limit:       limit,
		LevelID:     levelID,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	out := make([]Message, 0, len(resp.Messages))
	for _, w := range resp.Messages {
		out = append(out, w.toMessage(false))
	}
	return out, nil
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads an encoded FLAC recording and returns the
// recognized text. Satisfies capture.Transcriber.
func (c *Client) Transcribe(ctx context.Context, flacData []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio.flac")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(flacData); err != nil {
		return "", err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/speech/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	respBody, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("transcribing: %w", err)
	}
	var resp transcribeResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("transcribing: parsing response: %w", err)
	}
	return resp.Text, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.log.Debug().
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("api request")
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
