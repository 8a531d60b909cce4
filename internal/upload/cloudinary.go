package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Cloudinary uploads images with an unsigned upload preset
type Cloudinary struct {
	CloudName    string
	UploadPreset string
	Folder       string
	BaseURL      string // defaults to https://api.cloudinary.com
	HTTP         *http.Client
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Put uploads png and returns its secure URL
func (c *Cloudinary) Put(ctx context.Context, name string, png []byte) (string, error) {
	if c.CloudName == "" || c.UploadPreset == "" {
		return "", fmt.Errorf("cloudinary cloud name and upload preset required")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := map[string]string{
		"file":          "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		"upload_preset": c.UploadPreset,
	}
	if c.Folder != "" {
		fields["folder"] = c.Folder
	}
	if name != "" {
		fields["context"] = "caption=" + strings.NewReplacer("|", " ", "=", " ").Replace(name)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	base := c.BaseURL
	if base == "" {
		base = "https://api.cloudinary.com"
	}
	endpoint := strings.TrimRight(base, "/") + "/v1_1/" + c.CloudName + "/image/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary request failed: %w", err)
	}
	defer resp.Body.Close()

	var out cloudinaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("cloudinary response invalid (HTTP %d): %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("cloudinary: %s", out.Error.Message)
	}
	if resp.StatusCode/100 != 2 || out.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload failed: HTTP %d", resp.StatusCode)
	}
	return out.SecureURL, nil
}
