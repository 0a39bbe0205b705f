package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// HTTPClient talks to a single filevault server.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// File is a downloaded, decrypted file.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type uploadResponse struct {
	FileID string `json:"fileId"`
}

type filesResponse struct {
	Files []*models.FileRecord `json:"files"`
}

type logsResponse struct {
	Logs []*models.ActivityLogEntry `json:"logs"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Upload sends data as the multipart "file" part and returns the new file id.
// An empty passphrase lets the server apply its default key.
func (c *HTTPClient) Upload(ctx context.Context, fileName, contentType string, data []byte, passphrase string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if passphrase != "" {
		if err := mw.WriteField(common.EncryptionKeyField, passphrase); err != nil {
			return "", err
		}
	}

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{mime.FormatMediaType("form-data", map[string]string{"name": "file", "filename": fileName})}
	if contentType != "" {
		h["Content-Type"] = []string{contentType}
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp uploadResponse
	if err := c.doJSON(req, http.StatusCreated, &resp); err != nil {
		return "", err
	}
	return resp.FileID, nil
}

func (c *HTTPClient) Download(ctx context.Context, fileID, passphrase string) (*File, error) {
	u := c.baseURL + "/api/download/" + url.PathEscape(fileID) + "?" + url.Values{common.EncryptionKeyField: {passphrase}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, decodeError(res)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	f := &File{ContentType: res.Header.Get("Content-Type"), Data: data, Name: fileID}
	if _, params, err := mime.ParseMediaType(res.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		f.Name = params["filename"]
	}
	return f, nil
}

func (c *HTTPClient) List(ctx context.Context) ([]*models.FileRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/files", nil)
	if err != nil {
		return nil, err
	}
	var resp filesResponse
	if err := c.doJSON(req, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

func (c *HTTPClient) Delete(ctx context.Context, fileID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/files/"+url.PathEscape(fileID), nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, http.StatusOK, nil)
}

func (c *HTTPClient) Logs(ctx context.Context) ([]*models.ActivityLogEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/logs", nil)
	if err != nil {
		return nil, err
	}
	var resp logsResponse
	if err := c.doJSON(req, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

func (c *HTTPClient) doJSON(req *http.Request, want int, out any) error {
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != want {
		return decodeError(res)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(res *http.Response) error {
	var e errorResponse
	_ = json.NewDecoder(res.Body).Decode(&e)

	msg := e.Message
	if e.Error != "" {
		msg = fmt.Sprintf("%s: %s", e.Message, e.Error)
	}
	if msg == "" {
		msg = res.Status
	}

	switch res.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", common.ErrValidation, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, msg)
	default:
		return fmt.Errorf("%w: %s", ErrServer, msg)
	}
}
