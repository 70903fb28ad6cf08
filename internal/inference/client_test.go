package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerolabel/aerolabel-go/internal/conf"
	"github.com/aerolabel/aerolabel-go/internal/errors"
)

const testBaseURL = "http://inference.test:9400"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	settings := &conf.Settings{}
	settings.Inference.URL = testBaseURL
	settings.Inference.Timeout = 5 * time.Second

	client := New(settings)
	httpmock.ActivateNonDefault(client.HTTPClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func TestClassify_Success(t *testing.T) {
	client := newTestClient(t)

	image := []byte("fake-jpeg-bytes")
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/v1/predict",
		func(req *http.Request) (*http.Response, error) {
			var payload struct {
				ImageBase64 string `json:"image_base64"`
				Axis        string `json:"axis"`
			}
			if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
			}
			assert.Equal(t, base64.StdEncoding.EncodeToString(image), payload.ImageBase64)
			assert.Equal(t, "aircraft", payload.Axis)
			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"class":      "A320",
				"confidence": 0.97,
			})
		})

	result, err := client.Classify(context.Background(), image, "aircraft")
	require.NoError(t, err)
	assert.Equal(t, "A320", result.Class)
	assert.InDelta(t, 0.97, result.Confidence, 1e-9)
}

func TestClassify_MissingAxis(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Classify(context.Background(), []byte("img"), "")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Zero(t, httpmock.GetTotalCallCount(), "no request should be sent")
}

func TestClassify_ServerError(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/v1/predict",
		httpmock.NewStringResponder(http.StatusInternalServerError, "model not loaded"))

	_, err := client.Classify(context.Background(), []byte("img"), "aircraft")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryCollaborator))
	assert.Contains(t, err.Error(), "500")
}

func TestRecognize_Success(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/v1/ocr",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{
			"registration": "D-AIZZ",
			"confidence":   0.88,
			"area":         "0.5 0.6 0.2 0.1",
		}))

	result, err := client.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "D-AIZZ", result.Registration)
	assert.InDelta(t, 0.88, result.Confidence, 1e-9)
	assert.Equal(t, "0.5 0.6 0.2 0.1", result.Area)
}

func TestAssess_Success(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/v1/quality",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{
			"clarity":    0.92,
			"occlusion":  0.05,
			"confidence": 0.8,
		}))

	result, err := client.Assess(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.InDelta(t, 0.92, result.Clarity, 1e-9)
	assert.InDelta(t, 0.05, result.Occlusion, 1e-9)
}

func TestPost_MalformedResponse(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/v1/quality",
		httpmock.NewStringResponder(http.StatusOK, "not json"))

	_, err := client.Assess(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryCollaborator))
}

func TestPost_ContextCancellation(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/v1/ocr",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Recognize(ctx, []byte("img"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
