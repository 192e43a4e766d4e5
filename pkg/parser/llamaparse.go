package parser

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
)

// Page is one parsed page of a document.
type Page struct {
	Text     string
	Metadata map[string]interface{}
}

// DocumentParser is the parsing collaborator contract: a file reference in,
// ordered pages out.
type DocumentParser interface {
	Parse(ctx context.Context, path string) ([]Page, error)
}

const (
	llamaBaseURL = "https://api.cloud.llamaindex.ai/api/parsing"

	pollInterval = 2 * time.Second
	maxPolls     = 90
)

// LlamaParseClient parses documents through the LlamaParse REST API:
// upload the file, poll the job until done, then fetch the JSON result.
type LlamaParseClient struct {
	apiKey     string
	httpClient *http.Client
}

func NewLlamaParseClient(apiKey string) *LlamaParseClient {
	return &LlamaParseClient{
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

type llamaUploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type llamaJobResponse struct {
	Status string `json:"status"`
}

type llamaResultPage struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

type llamaResultResponse struct {
	Pages []llamaResultPage `json:"pages"`
}

func (c *LlamaParseClient) Parse(ctx context.Context, path string) ([]Page, error) {
	jobID, err := c.upload(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := c.waitForJob(ctx, jobID); err != nil {
		return nil, err
	}

	return c.fetchResult(ctx, jobID)
}

func (c *LlamaParseClient) upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", llamaBaseURL+"/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

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
		return "", fmt.Errorf("llamaparse upload failed, code %d, body %s", res.StatusCode, string(resBody))
	}

	var uploadRes llamaUploadResponse
	if err := json.Unmarshal(resBody, &uploadRes); err != nil {
		return "", err
	}
	if uploadRes.ID == "" {
		return "", fmt.Errorf("llamaparse upload returned no job id: %s", string(resBody))
	}
	return uploadRes.ID, nil
}

func (c *LlamaParseClient) waitForJob(ctx context.Context, jobID string) error {
	for i := 0; i < maxPolls; i++ {
		status, err := c.jobStatus(ctx, jobID)
		if err != nil {
			return err
		}
		switch status {
		case "SUCCESS":
			return nil
		case "ERROR", "CANCELED":
			return fmt.Errorf("llamaparse job %s ended with status %s", jobID, status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return fmt.Errorf("llamaparse job %s did not complete in time", jobID)
}

func (c *LlamaParseClient) jobStatus(ctx context.Context, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", llamaBaseURL+"/job/"+jobID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
		return "", fmt.Errorf("llamaparse job status failed, code %d, body %s", res.StatusCode, string(resBody))
	}

	var jobRes llamaJobResponse
	if err := json.Unmarshal(resBody, &jobRes); err != nil {
		return "", err
	}
	return jobRes.Status, nil
}

func (c *LlamaParseClient) fetchResult(ctx context.Context, jobID string) ([]Page, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", llamaBaseURL+"/job/"+jobID+"/result/json", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llamaparse result failed, code %d, body %s", res.StatusCode, string(resBody))
	}

	var resultRes llamaResultResponse
	if err := json.Unmarshal(resBody, &resultRes); err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(resultRes.Pages))
	for _, p := range resultRes.Pages {
		metadata := map[string]interface{}{}
		if p.Page > 0 {
			metadata["page"] = p.Page
		}
		pages = append(pages, Page{
			Text:     p.Text,
			Metadata: metadata,
		})
	}
	return pages, nil
}
