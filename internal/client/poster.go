package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/LeventeLantos/tweet-automation/internal/model"
)

// Poster is the posting service boundary. It returns the transport
// status code of the attempt; classifying it is the caller's job.
type Poster interface {
	Post(ctx context.Context, creds model.Credentials, text, attachmentPath string) (int, error)
}

// HTTPPoster signs every request with OAuth 1.0a (HMAC-SHA1). The two
// secrets are never sent.
type HTTPPoster struct {
	url     string
	timeout time.Duration
	base    *http.Client
}

func NewHTTPPoster(url string, timeout time.Duration) *HTTPPoster {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPPoster{
		url:     url,
		timeout: timeout,
		base:    &http.Client{Transport: http.DefaultTransport},
	}
}

// signedClient wraps the base transport with an OAuth1 signer for creds.
func (p *HTTPPoster) signedClient(ctx context.Context, creds model.Credentials) *http.Client {
	cfg := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	ctx = context.WithValue(ctx, oauth1.HTTPClient, p.base)

	c := cfg.Client(ctx, oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret))
	c.Timeout = p.timeout
	return c
}

type postRequest struct {
	Text string `json:"text"`
}

// Post sends text alone as JSON, or text plus the attachment as a
// multipart form. A non-nil error means no status code was received.
func (p *HTTPPoster) Post(ctx context.Context, creds model.Credentials, text, attachmentPath string) (int, error) {
	if !creds.Complete() {
		return 0, fmt.Errorf("incomplete credentials")
	}

	var (
		body        *bytes.Buffer
		contentType string
		err         error
	)
	if attachmentPath == "" {
		body, contentType, err = jsonBody(text)
	} else {
		body, contentType, err = multipartBody(text, attachmentPath)
	}
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.signedClient(ctx, creds).Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func jsonBody(text string) (*bytes.Buffer, string, error) {
	b, err := json.Marshal(postRequest{Text: text})
	if err != nil {
		return nil, "", err
	}
	return bytes.NewBuffer(b), "application/json", nil
}

func multipartBody(text, attachmentPath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(attachmentPath)
	if err != nil {
		return nil, "", fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("text", text); err != nil {
		return nil, "", err
	}
	part, err := w.CreateFormFile("media", filepath.Base(attachmentPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read attachment: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
