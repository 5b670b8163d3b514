package anticaptcha_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/umstimetable/timetable-api/pkg/anticaptcha"
)

// MockHTTPClient mocks the HTTP client
type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(*http.Request) *http.Response); ok {
		return fn(req), args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func forMethod(method string) interface{} {
	return mock.MatchedBy(func(req *http.Request) bool {
		return strings.HasSuffix(req.URL.Path, "/"+method)
	})
}

func newClient(m *MockHTTPClient) *anticaptcha.Client {
	return anticaptcha.NewClient("test-key", m,
		anticaptcha.WithBaseURL("https://captcha.test/"),
		anticaptcha.WithPolling(time.Millisecond, time.Second))
}

func TestClient_GetBalance(t *testing.T) {
	m := new(MockHTTPClient)
	m.On("Do", forMethod("getBalance")).Return(jsonResponse(`{"errorId":0,"balance":1.25}`), nil)

	balance, err := newClient(m).GetBalance(context.Background())

	require.NoError(t, err)
	assert.InDelta(t, 1.25, balance, 1e-9)
	m.AssertExpectations(t)
}

func TestClient_GetBalance_APIError(t *testing.T) {
	m := new(MockHTTPClient)
	m.On("Do", forMethod("getBalance")).Return(jsonResponse(
		`{"errorId":1,"errorCode":"ERROR_KEY_DOES_NOT_EXIST","errorDescription":"Account authorization key not found"}`), nil)

	_, err := newClient(m).GetBalance(context.Background())

	var apiErr *anticaptcha.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "ERROR_KEY_DOES_NOT_EXIST", apiErr.Code)
}

func TestClient_SolveImage_PollsUntilReady(t *testing.T) {
	m := new(MockHTTPClient)

	var created map[string]any
	m.On("Do", forMethod("createTask")).Run(func(args mock.Arguments) {
		req := args.Get(0).(*http.Request)
		require.NoError(t, json.NewDecoder(req.Body).Decode(&created))
	}).Return(jsonResponse(`{"errorId":0,"taskId":77}`), nil)
	m.On("Do", forMethod("getTaskResult")).Return(jsonResponse(`{"errorId":0,"status":"processing"}`), nil).Once()
	m.On("Do", forMethod("getTaskResult")).Return(jsonResponse(`{"errorId":0,"status":"ready","solution":{"text":"AbC12"}}`), nil).Once()

	text, err := newClient(m).SolveImage(context.Background(), []byte{0x89, 'P', 'N', 'G'})

	require.NoError(t, err)
	assert.Equal(t, "AbC12", text)

	task := created["task"].(map[string]any)
	assert.Equal(t, "ImageToTextTask", task["type"])
	assert.Equal(t, true, task["case"])
	assert.Equal(t, "iVBORw==", task["body"])
	assert.Equal(t, "test-key", created["clientKey"])
	m.AssertExpectations(t)
}

func TestClient_SolveImage_NetworkError(t *testing.T) {
	m := new(MockHTTPClient)
	m.On("Do", forMethod("createTask")).Return(nil, assert.AnError)

	_, err := newClient(m).SolveImage(context.Background(), []byte("img"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call anti-captcha createTask")
}

func TestClient_SolveImage_Timeout(t *testing.T) {
	m := new(MockHTTPClient)
	m.On("Do", forMethod("createTask")).Return(jsonResponse(`{"errorId":0,"taskId":1}`), nil)
	m.On("Do", forMethod("getTaskResult")).Return(func(*http.Request) *http.Response {
		return jsonResponse(`{"errorId":0,"status":"processing"}`)
	}, nil)

	client := anticaptcha.NewClient("k", m,
		anticaptcha.WithBaseURL("https://captcha.test"),
		anticaptcha.WithPolling(time.Millisecond, 20*time.Millisecond))

	_, err := client.SolveImage(context.Background(), []byte("img"))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
