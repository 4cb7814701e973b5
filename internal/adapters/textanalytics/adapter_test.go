package textanalytics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/feedback_assistant/internal/models"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	adapter, err := New(Options{Endpoint: srv.URL + "/", APIKey: "ta-key", Language: "en", Timeout: time.Second})
	require.NoError(t, err)
	return adapter
}

func TestAnalyzeCopiesScoresVerbatim(t *testing.T) {
	var req sentimentRequest
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, sentimentPath, r.URL.Path)
		require.Equal(t, "ta-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"documents":[{"id":"1","sentiment":"positive","confidenceScores":{"positive":0.97,"neutral":0.02,"negative":0.01}}],"errors":[],"modelVersion":"2022-11-01"}`))
	})

	res, err := adapter.Analyze(context.Background(), "The product is excellent and support was fast.")
	require.NoError(t, err)
	require.Equal(t, models.SentimentResult{
		Label:         models.SentimentPositive,
		PositiveScore: 0.97,
		NeutralScore:  0.02,
		NegativeScore: 0.01,
	}, res)

	require.Len(t, req.Documents, 1)
	require.Equal(t, "1", req.Documents[0].ID)
	require.Equal(t, "en", req.Documents[0].Language)
	require.Equal(t, "The product is excellent and support was fast.", req.Documents[0].Text)
}

func TestAnalyzeMapsUnrecognizedLabel(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"documents":[{"id":"1","sentiment":"ambivalent","confidenceScores":{"positive":0.3,"neutral":0.4,"negative":0.3}}]}`))
	})

	res, err := adapter.Analyze(context.Background(), "hmm")
	require.NoError(t, err)
	require.Equal(t, models.SentimentUnknown, res.Label)
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"code":"401","message":"Access denied due to invalid subscription key"}}`,
			wantMsg: "invalid subscription key",
		},
		{
			name:    "server error without body",
			status:  http.StatusInternalServerError,
			body:    ``,
			wantMsg: "status 500",
		},
		{
			name:    "document error",
			status:  http.StatusOK,
			body:    `{"documents":[],"errors":[{"id":"1","error":{"code":"InvalidArgument","message":"Document text is empty."}}]}`,
			wantMsg: "Document text is empty",
		},
		{
			name:    "no documents",
			status:  http.StatusOK,
			body:    `{"documents":[],"errors":[]}`,
			wantMsg: "no documents",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := adapter.Analyze(context.Background(), "text")
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestAnalyzeHonoursContextCancellation(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := adapter.Analyze(ctx, "slow")
	require.Error(t, err)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{APIKey: "k"})
	require.Error(t, err)
	_, err = New(Options{Endpoint: "https://example"})
	require.Error(t, err)
}
