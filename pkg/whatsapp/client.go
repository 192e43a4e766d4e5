package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const graphBaseURL = "https://graph.facebook.com/v19.0"

// Button is one reply button attached to an outbound message.
type Button struct {
	ID    string
	Title string
}

// Predefined button sets surfaced to the user.
var (
	ButtonsStart = []Button{
		{ID: "SUMMARY", Title: "📋 Summary"},
		{ID: "QUERY", Title: "❓ Query"},
	}
	ButtonsContinue = []Button{
		{ID: "SUMMARY", Title: "📋 Summary"},
		{ID: "QUERY", Title: "❓ Continue Q&A"},
		{ID: "END", Title: "🚪 End Session"},
	}
)

// Sender is the outbound side of the messaging channel.
type Sender interface {
	SendText(ctx context.Context, user string, text string) error
	SendButtons(ctx context.Context, user string, text string, buttons []Button) error
}

// MediaFetcher downloads an inbound media attachment to a local file and
// returns its path.
type MediaFetcher interface {
	DownloadMedia(ctx context.Context, mediaID string, destDir string) (string, error)
}

// Client talks to the WhatsApp Cloud API.
type Client struct {
	phoneID     string
	accessToken string
	httpClient  *http.Client
}

func NewClient(phoneID string, accessToken string) *Client {
	return &Client{
		phoneID:     phoneID,
		accessToken: accessToken,
		httpClient:  &http.Client{},
	}
}

type textPayload struct {
	Body string `json:"body"`
}

type replyPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type buttonPayload struct {
	Type  string       `json:"type"`
	Reply replyPayload `json:"reply"`
}

type interactiveAction struct {
	Buttons []buttonPayload `json:"buttons"`
}

type interactiveBody struct {
	Text string `json:"text"`
}

type interactivePayload struct {
	Type   string            `json:"type"`
	Body   interactiveBody   `json:"body"`
	Action interactiveAction `json:"action"`
}

type messagePayload struct {
	MessagingProduct string              `json:"messaging_product"`
	To               string              `json:"to"`
	Type             string              `json:"type"`
	Text             *textPayload        `json:"text,omitempty"`
	Interactive      *interactivePayload `json:"interactive,omitempty"`
}

func (c *Client) SendText(ctx context.Context, user string, text string) error {
	payload := messagePayload{
		MessagingProduct: "whatsapp",
		To:               user,
		Type:             "text",
		Text:             &textPayload{Body: text},
	}
	return c.postMessage(ctx, payload)
}

func (c *Client) SendButtons(ctx context.Context, user string, text string, buttons []Button) error {
	action := interactiveAction{}
	for _, b := range buttons {
		action.Buttons = append(action.Buttons, buttonPayload{
			Type:  "reply",
			Reply: replyPayload{ID: b.ID, Title: b.Title},
		})
	}

	payload := messagePayload{
		MessagingProduct: "whatsapp",
		To:               user,
		Type:             "interactive",
		Interactive: &interactivePayload{
			Type:   "button",
			Body:   interactiveBody{Text: text},
			Action: action,
		},
	}
	return c.postMessage(ctx, payload)
}

func (c *Client) postMessage(ctx context.Context, payload messagePayload) error {
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/%s/messages", graphBaseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(payloadJson))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf(
			"whatsapp send failed, got status %d. with response body %s",
			res.StatusCode,
			string(resBody),
		)
	}
	return nil
}

type mediaMetadata struct {
	URL string `json:"url"`
}

// DownloadMedia resolves the CDN URL for mediaID and saves the bytes under
// destDir. The returned path is the transient document artifact referenced
// by the session until the session ends.
func (c *Client) DownloadMedia(ctx context.Context, mediaID string, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", graphBaseURL+"/"+mediaID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media lookup failed, code %d, body %s", res.StatusCode, string(resBody))
	}

	var meta mediaMetadata
	if err := json.Unmarshal(resBody, &meta); err != nil {
		return "", err
	}
	if meta.URL == "" {
		return "", fmt.Errorf("media lookup returned no url: %s", string(resBody))
	}

	return c.fetchToFile(ctx, meta.URL, destDir, mediaID)
}

func (c *Client) fetchToFile(ctx context.Context, url string, destDir string, mediaID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media download failed, code %d", res.StatusCode)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(destDir, mediaID+".pdf")
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(file, res.Body); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
