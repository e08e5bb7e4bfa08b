package imgur

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"treetrack/internal/config"
	applog "treetrack/internal/log"
)

const (
	defaultBaseURL = "https://api.imgur.com"
	defaultTimeout = 30 * time.Second
)

// Asset identifies one hosted binary object. Link is the public URL and
// DeleteHash the token the host accepts for removal.
type Asset struct {
	Link       string
	DeleteHash string
}

// Gateway is the narrow surface the rest of the application sees.
// Upload fails loudly; Delete never returns an error because it is only
// ever invoked after the enclosing row mutation has committed and a
// failure cannot usefully undo anything.
type Gateway interface {
	Upload(ctx context.Context, image []byte) (Asset, error)
	Delete(ctx context.Context, deleteHash string) bool
}

// Client talks to the Imgur v3 image API with a bearer token.
type Client struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

// NewClient builds a Client from the supplied configuration.
func NewClient(cfg config.ImgurConfig) (*Client, error) {
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errors.New("imgur: access token must not be empty")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		accessToken: token,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type imageData struct {
	Link       string `json:"link"`
	DeleteHash string `json:"deletehash"`
}

type imageResponse struct {
	Data    imageData `json:"data"`
	Success bool      `json:"success"`
	Status  int       `json:"status"`
}

type deleteResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// Upload sends the image bytes to the host and returns the resulting
// asset reference.
func (c *Client) Upload(ctx context.Context, image []byte) (Asset, error) {
	if len(image) == 0 {
		return Asset{}, errors.New("imgur: image payload must not be empty")
	}

	body := new(bytes.Buffer)
	form := multipart.NewWriter(body)
	if err := form.WriteField("image", base64.StdEncoding.EncodeToString(image)); err != nil {
		return Asset{}, fmt.Errorf("imgur: encode image field: %w", err)
	}
	if err := form.WriteField("type", "base64"); err != nil {
		return Asset{}, fmt.Errorf("imgur: encode type field: %w", err)
	}
	if err := form.Close(); err != nil {
		return Asset{}, fmt.Errorf("imgur: finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/3/image", body)
	if err != nil {
		return Asset{}, fmt.Errorf("imgur: build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Asset{}, fmt.Errorf("imgur: call image host: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return Asset{}, fmt.Errorf("imgur: image host returned status %s", resp.Status)
	}

	var parsed imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Asset{}, fmt.Errorf("imgur: decode upload response: %w", err)
	}

	if !parsed.Success || parsed.Data.Link == "" || parsed.Data.DeleteHash == "" {
		return Asset{}, errors.New("imgur: image host rejected upload")
	}

	applog.Debug(ctx, "uploaded image asset", "link", parsed.Data.Link)

	return Asset{
		Link:       parsed.Data.Link,
		DeleteHash: parsed.Data.DeleteHash,
	}, nil
}

// Delete removes the asset identified by deleteHash. The returned boolean
// reports remote success; every failure path is logged and reported as
// false rather than raised.
func (c *Client) Delete(ctx context.Context, deleteHash string) bool {
	hash := strings.TrimSpace(deleteHash)
	if hash == "" {
		applog.Warn(ctx, "asset delete skipped: empty hash")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/3/image/"+hash, nil)
	if err != nil {
		applog.Warn(ctx, "asset delete request build failed", "hash", hash, "error", err)
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		applog.Warn(ctx, "asset delete call failed", "hash", hash, "error", err)
		return false
	}
	defer resp.Body.Close()

	var parsed deleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		applog.Warn(ctx, "asset delete response unreadable", "hash", hash, "error", err)
		return false
	}

	if !parsed.Success {
		applog.Warn(ctx, "image host refused asset delete", "hash", hash, "status", resp.Status)
		return false
	}

	applog.Debug(ctx, "deleted image asset", "hash", hash)
	return true
}
