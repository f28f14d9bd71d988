package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVendor(t *testing.T, handler http.HandlerFunc) (*VendorExtractor, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	v := NewVendorExtractor("test-key", "", srv.URL, 3, 1000)
	v.retryCfg.InitialBackoff = time.Millisecond
	v.retryCfg.MaxBackoff = 5 * time.Millisecond
	v.retryCfg.OnRetry = nil
	return v, srv
}

func ocrPages(pages ...string) vendorResponse {
	resp := vendorResponse{}
	for i, p := range pages {
		resp.Pages = append(resp.Pages, vendorPage{Index: i, Markdown: p})
	}
	return resp
}

func TestVendorExtractor_Success(t *testing.T) {
	var gotAuth string
	var gotReq vendorRequest
	v, _ := newTestVendor(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		require.NoError(t, json.NewEncoder(w).Encode(ocrPages("page one", "page two")))
	})

	res := v.Extract(context.Background(), []byte("%PDF-1.4 fake"), "application/pdf")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "page one\n\npage two", res.Text)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, defaultVendorModel, gotReq.Model)
	assert.Equal(t, "document_url", gotReq.Document.Type)
	assert.Contains(t, gotReq.Document.DocumentURL, "data:application/pdf;base64,")
}

func TestVendorExtractor_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	v, _ := newTestVendor(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(ocrPages("recovered")))
	})

	res := v.Extract(context.Background(), []byte("doc"), "application/pdf")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "recovered", res.Text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestVendorExtractor_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	v, _ := newTestVendor(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
	})

	res := v.Extract(context.Background(), []byte("doc"), "application/pdf")
	require.Equal(t, OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Reason, "400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestVendorExtractor_ExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	v, _ := newTestVendor(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	res := v.Extract(context.Background(), []byte("doc"), "application/pdf")
	require.Equal(t, OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Reason, "502")
	assert.Equal(t, int32(3), calls.Load())
}

func TestVendorExtractor_EmptyPagesIsFailure(t *testing.T) {
	v, _ := newTestVendor(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(ocrPages("  ", "")))
	})

	res := v.Extract(context.Background(), []byte("doc"), "application/pdf")
	require.Equal(t, OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Reason, "no text")
}

func TestVendorExtractor_NoAPIKey(t *testing.T) {
	v := NewVendorExtractor("", "", "", 3, 2)
	res := v.Extract(context.Background(), []byte("doc"), "application/pdf")
	assert.Equal(t, OutcomeNotApplicable, res.Outcome)
}

func TestVendorExtractor_Applicable(t *testing.T) {
	v := NewVendorExtractor("key", "", "", 3, 2)
	assert.Equal(t, TierVendor, v.Name())
	assert.True(t, v.Applicable(nil, "application/pdf"))
	assert.False(t, v.Applicable(nil, "image/png"))
}
