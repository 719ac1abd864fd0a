package candidate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Resume is one file selected for upload.
type Resume struct {
	Name        string
	ContentType string
	Data        []byte
}

// Application is the payload sent on form submission.
type Application struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	PositionApplied string `json:"positionApplied"`
	Experience      string `json:"experience"`
	CoverLetter     string `json:"coverLetter"`
	PrivacyConsent  bool   `json:"privacyConsent"`
	StoragePath     string `json:"storagePath,omitempty"`
}

// UploadLocation describes where and how to upload one resume file.
type UploadLocation struct {
	UploadURL    string `json:"uploadUrl"`
	StoragePath  string `json:"storagePath"`
	EmulatorMode bool   `json:"emulatorMode"`
}

// Client talks to the careers API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient constructs a Client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return errMarshal
	}
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if errReq != nil {
		return errReq
	}
	req.Header.Set("Content-Type", "application/json")

	resp, errDo := c.httpClient().Do(req)
	if errDo != nil {
		return errDo
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if errDecode := json.NewDecoder(resp.Body).Decode(&body); errDecode == nil && body.Error != "" {
		return fmt.Errorf("%s (status %d)", body.Error, resp.StatusCode)
	}
	return fmt.Errorf("request failed with status %d", resp.StatusCode)
}

// RequestUploadLocation asks the backend where to put a resume file.
func (c *Client) RequestUploadLocation(ctx context.Context, fileName, contentType string) (*UploadLocation, error) {
	var location UploadLocation
	err := c.postJSON(ctx, "/api/careers/upload-url", map[string]string{
		"fileName":    fileName,
		"contentType": contentType,
	}, &location)
	if err != nil {
		return nil, err
	}
	return &location, nil
}

// Upload pushes resume bytes to the given location, reporting progress as a
// percentage through onProgress. Signed locations take a direct PUT; the
// direct-upload fallback posts multipart form data.
func (c *Client) Upload(ctx context.Context, location *UploadLocation, resume *Resume, onProgress func(int)) (string, error) {
	if location.EmulatorMode {
		return c.uploadDirect(ctx, location, resume, onProgress)
	}
	return c.uploadSigned(ctx, location, resume, onProgress)
}

func (c *Client) uploadSigned(ctx context.Context, location *UploadLocation, resume *Resume, onProgress func(int)) (string, error) {
	reader := newProgressReader(resume.Data, onProgress)
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPut, location.UploadURL, reader)
	if errReq != nil {
		return "", errReq
	}
	req.Header.Set("Content-Type", resume.ContentType)
	req.ContentLength = int64(len(resume.Data))

	resp, errDo := c.httpClient().Do(req)
	if errDo != nil {
		return "", errDo
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload failed with status %d", resp.StatusCode)
	}
	if onProgress != nil {
		onProgress(100)
	}
	return location.StoragePath, nil
}

func (c *Client) uploadDirect(ctx context.Context, location *UploadLocation, resume *Resume, onProgress func(int)) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, errPart := writer.CreateFormFile("file", resume.Name)
	if errPart != nil {
		return "", errPart
	}
	if _, errWrite := part.Write(resume.Data); errWrite != nil {
		return "", errWrite
	}
	if errClose := writer.Close(); errClose != nil {
		return "", errClose
	}

	url := location.UploadURL
	if strings.HasPrefix(url, "/") {
		url = c.BaseURL + url
	}
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, url, newProgressReader(buf.Bytes(), onProgress))
	if errReq != nil {
		return "", errReq
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.ContentLength = int64(buf.Len())

	resp, errDo := c.httpClient().Do(req)
	if errDo != nil {
		return "", errDo
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}
	var body struct {
		StoragePath string `json:"storagePath"`
	}
	if errDecode := json.NewDecoder(resp.Body).Decode(&body); errDecode != nil {
		return "", errDecode
	}
	if onProgress != nil {
		onProgress(100)
	}
	return body.StoragePath, nil
}

// SubmitApplication runs the full submission flow: upload the resume when
// present, then create the candidate. It returns the new candidate id.
func (c *Client) SubmitApplication(ctx context.Context, application Application, resume *Resume, onProgress func(int)) (string, error) {
	if resume != nil {
		location, errLocation := c.RequestUploadLocation(ctx, resume.Name, resume.ContentType)
		if errLocation != nil {
			return "", errLocation
		}
		path, errUpload := c.Upload(ctx, location, resume, onProgress)
		if errUpload != nil {
			return "", errUpload
		}
		application.StoragePath = path
	}

	var body struct {
		CandidateID string `json:"candidateId"`
	}
	if errSubmit := c.postJSON(ctx, "/api/careers/submit", application, &body); errSubmit != nil {
		return "", errSubmit
	}
	return body.CandidateID, nil
}

// SubmitProfileTest sends completed profile-test answers.
func (c *Client) SubmitProfileTest(ctx context.Context, candidateID string, answers map[string]string) error {
	payload := map[string]any{"answers": answers}
	if candidateID != "" {
		payload["candidateId"] = candidateID
	}
	return c.postJSON(ctx, "/api/careers/profile", payload, nil)
}
