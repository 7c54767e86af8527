package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/starwalkn/gotenberg-go-client/v8"
	"github.com/starwalkn/gotenberg-go-client/v8/document"
)

// PDFConverter turns a document into PDF bytes.
type PDFConverter interface {
	ConvertToPDF(ctx context.Context, content []byte, filename string) (io.ReadCloser, error)
}

// PDFService converts documents through Gotenberg's LibreOffice route.
type PDFService struct {
	client     *gotenberg.Client
	timeout    time.Duration
	maxRetries int
}

func NewPDFService(gotenbergURL string, timeoutStr string) (*PDFService, error) {
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{
		Timeout: timeout,
	}

	client, err := gotenberg.NewClient(gotenbergURL, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gotenberg client: %w", err)
	}

	return &PDFService{
		client:     client,
		timeout:    timeout,
		maxRetries: 3,
	}, nil
}

// ConvertToPDF sends content (named by filename, e.g. "brochure.html") to
// LibreOffice, retrying with a linear backoff.
func (s *PDFService) ConvertToPDF(ctx context.Context, content []byte, filename string) (io.ReadCloser, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		body, err := s.convertOnce(ctx, content, filename)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt < s.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}

	return nil, fmt.Errorf("failed to convert document after %d attempts: %w", s.maxRetries, lastErr)
}

func (s *PDFService) convertOnce(ctx context.Context, content []byte, filename string) (io.ReadCloser, error) {
	convertCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc, err := document.FromReader(filename, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to create document from reader: %w", err)
	}

	resp, err := s.client.Send(convertCtx, gotenberg.NewLibreOfficeRequest(doc))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}

	// Read fully so the body outlives the per-attempt timeout.
	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read converted document: %w", err)
	}
	return io.NopCloser(bytes.NewReader(pdf)), nil
}

// Close releases the Gotenberg client
func (s *PDFService) Close() error {
	return nil
}
