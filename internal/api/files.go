package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// File is the metadata record the instance keeps for an uploaded binary.
type File struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Filename string  `json:"filename_download"`
	Type     string  `json:"type"`
	Checksum string  `json:"checksum"`
	Filesize flexInt `json:"filesize"`
	Folder   flexID  `json:"folder"`
}

// flexInt decodes integers that some backend versions serialize as strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("parse filesize %q: %w", s, err)
		}
		*f = flexInt(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// Int64 returns the decoded size.
func (f flexInt) Int64() int64 { return int64(f) }

// flexID decodes ids that may arrive as strings, numbers, or embedded objects
// carrying an "id" key.
type flexID string

// String returns the id in canonical string form.
func (f flexID) String() string { return string(f) }

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
	case '{':
		var obj struct {
			ID json.Number `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*f = flexID(obj.ID.String())
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = flexID(n.String())
	}
	return nil
}

// GetFile fetches file metadata by id. A 404 maps to ErrNotFound, which the
// transfer engine uses to probe whether an arbitrary string is a file id.
func (c *Client) GetFile(ctx context.Context, id string) (*File, error) {
	var envelope struct {
		Data File `json:"data"`
	}
	if err := c.getJSON(ctx, "files/"+url.PathEscape(id), nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// DownloadAsset fetches the raw binary for a file id, returning the payload
// and the content type the instance reported.
func (c *Client) DownloadAsset(ctx context.Context, id string) ([]byte, string, error) {
	return c.doRead(ctx, "assets/"+url.PathEscape(id), nil)
}

// UploadRequest describes a multipart file upload.
type UploadRequest struct {
	Data        []byte
	Filename    string
	ContentType string
	Title       string
	FolderID    string
}

// UploadFile uploads a binary via multipart form, returning the stored file
// metadata. Form field order matters to some backends: scalar fields first,
// the binary last.
func (c *Client) UploadFile(ctx context.Context, upload UploadRequest) (*File, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if upload.Title != "" {
		if err := writer.WriteField("title", upload.Title); err != nil {
			return nil, fmt.Errorf("api: write title field: %w", err)
		}
	}
	if upload.FolderID != "" {
		if err := writer.WriteField("folder", upload.FolderID); err != nil {
			return nil, fmt.Errorf("api: write folder field: %w", err)
		}
	}
	if upload.Filename != "" {
		if err := writer.WriteField("filename_download", upload.Filename); err != nil {
			return nil, fmt.Errorf("api: write filename field: %w", err)
		}
	}

	filename := upload.Filename
	if filename == "" {
		filename = "upload.bin"
	}
	var field io.Writer
	var err error
	if upload.ContentType != "" {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)}
		header["Content-Type"] = []string{upload.ContentType}
		field, err = writer.CreatePart(header)
	} else {
		field, err = writer.CreateFormFile("file", filename)
	}
	if err != nil {
		return nil, fmt.Errorf("api: create file field: %w", err)
	}
	if _, err := field.Write(upload.Data); err != nil {
		return nil, fmt.Errorf("api: write file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("api: close multipart writer: %w", err)
	}

	endpoint := c.baseURL.JoinPath("files")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("api: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, newError(http.MethodPost, "files", resp.StatusCode, raw)
	}
	var envelope struct {
		Data File `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("api: decode upload response: %w", err)
	}
	return &envelope.Data, nil
}

// UpdateFile applies a partial update to file metadata (title, folder).
func (c *Client) UpdateFile(ctx context.Context, id string, payload map[string]any) error {
	return c.writeJSON(ctx, "PATCH", "files/"+url.PathEscape(id), payload, nil)
}
