package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/markdave123-py/docchat/internal/retry"
)

const (
	defaultVendorEndpoint = "https://api.mistral.ai/v1/ocr"
	defaultVendorModel    = "pixtral-large-latest"
)

var _ Extractor = (*VendorExtractor)(nil)

// VendorExtractor is the paid document-intelligence tier. It sends the
// whole document to an external OCR API and joins the returned pages.
// Transient server errors are retried with exponential backoff; once
// the attempt budget is spent the tier reports Failed and the chain
// moves to the vision tier.
type VendorExtractor struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	retryCfg retry.Config
}

// NewVendorExtractor creates the vendor tier. Empty model/endpoint fall
// back to the defaults; ratePerSec bounds outgoing request rate.
func NewVendorExtractor(apiKey, model, endpoint string, attempts int, ratePerSec float64) *VendorExtractor {
	if model == "" {
		model = defaultVendorModel
	}
	if endpoint == "" {
		endpoint = defaultVendorEndpoint
	}
	if ratePerSec <= 0 {
		ratePerSec = 2
	}
	cfg := retry.DefaultConfig()
	if attempts > 0 {
		cfg.MaxAttempts = attempts
	}
	cfg.OnRetry = retry.Logger("vendor_ocr", "extract")

	return &VendorExtractor{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), 1),
		retryCfg: cfg,
	}
}

type vendorRequest struct {
	Model    string         `json:"model"`
	Document vendorDocument `json:"document"`
}

type vendorDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type vendorResponse struct {
	Pages []vendorPage `json:"pages"`
}

type vendorPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

func (v *VendorExtractor) Name() string { return TierVendor }

// Applicable covers the same container formats as the local tier; the
// vendor service parses the document visually, so it also works when
// the embedded text layer is missing.
func (v *VendorExtractor) Applicable(_ []byte, contentType string) bool {
	return containerTypes[contentType]
}

func (v *VendorExtractor) Extract(ctx context.Context, data []byte, contentType string) Result {
	if v.apiKey == "" {
		return NotApplicable("vendor: no API key configured")
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	dataURL := "data:" + contentType + ";base64," + encoded

	reqBody := vendorRequest{
		Model: v.model,
		Document: vendorDocument{
			Type:        "document_url",
			DocumentURL: dataURL,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Failed("vendor: marshal request: %v", err)
	}

	var text string
	err = retry.Do(ctx, v.retryCfg, func(ctx context.Context) error {
		if err := v.limiter.Wait(ctx); err != nil {
			return err
		}
		out, err := v.callOnce(ctx, bodyBytes)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return Failed("vendor: %v", err)
	}

	if strings.TrimSpace(text) == "" {
		return Failed("vendor: service returned no text")
	}
	return Success(text)
}

func (v *VendorExtractor) callOnce(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "API call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("API returned %d: %s", resp.StatusCode, string(respBody))
		if retry.IsTransientHTTPStatus(resp.StatusCode) {
			return "", retry.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}

	var ocrResp vendorResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return "", eris.Wrap(err, "unmarshal response")
	}

	var sb strings.Builder
	for i, page := range ocrResp.Pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(page.Markdown)
	}
	return sb.String(), nil
}
