package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crucible-sandbox/crucible/pkg/domain"
	"github.com/crucible-sandbox/crucible/pkg/languages"
	"github.com/crucible-sandbox/crucible/pkg/profiler"
	"github.com/crucible-sandbox/crucible/pkg/session"
)

// Mocks

type mockSandbox struct {
	openErr  error
	setupErr error
	runErr   error
	result   *domain.ExecutionResult

	opened bool
	closed bool
	libs   []string
}

func (m *mockSandbox) Open(ctx context.Context) error {
	m.opened = true
	return m.openErr
}

func (m *mockSandbox) Setup(ctx context.Context, libraries []string) error {
	m.libs = libraries
	return m.setupErr
}

func (m *mockSandbox) Run(ctx context.Context, code string, profile bool) (*domain.ExecutionResult, error) {
	if m.runErr != nil {
		return nil, m.runErr
	}
	return m.result, nil
}

func (m *mockSandbox) Close(ctx context.Context) error {
	m.closed = true
	return nil
}

func newServer(sb session.Sandbox, factoryErr error) *Server {
	return &Server{
		Languages: languages.NewRegistry(),
		NewSandbox: func(ctx context.Context, lang languages.Language) (session.Sandbox, error) {
			if factoryErr != nil {
				return nil, factoryErr
			}
			return sb, nil
		},
		Timeout: time.Second,
	}
}

func postRun(t *testing.T, h http.Handler, req domain.ExecutionRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", bytes.NewReader(body)))
	return rec
}

func TestHandleRun_Success(t *testing.T) {
	sb := &mockSandbox{result: &domain.ExecutionResult{
		Stdout:       "hello\n",
		ExitStatus:   0,
		PeakMemoryKB: 1024,
	}}
	srv := newServer(sb, nil)

	rec := postRun(t, srv.Handler(), domain.ExecutionRequest{
		Language: "python",
		Code:     `print("hello")`,
		Profile:  true,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.ExecutionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, int64(1024), res.PeakMemoryKB)
	assert.NotEmpty(t, res.ID)
	assert.True(t, sb.opened)
	assert.True(t, sb.closed)
}

func TestHandleRun_NonZeroExitIsStillOK(t *testing.T) {
	sb := &mockSandbox{result: &domain.ExecutionResult{Stderr: "boom", ExitStatus: 1}}
	srv := newServer(sb, nil)

	rec := postRun(t, srv.Handler(), domain.ExecutionRequest{Language: "python", Code: "raise"})

	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.ExecutionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.ExitStatus)
}

func TestHandleRun_UnsupportedLanguage(t *testing.T) {
	srv := newServer(&mockSandbox{}, nil)
	rec := postRun(t, srv.Handler(), domain.ExecutionRequest{Language: "cobol", Code: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRun_MissingCode(t *testing.T) {
	srv := newServer(&mockSandbox{}, nil)
	rec := postRun(t, srv.Handler(), domain.ExecutionRequest{Language: "python"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRun_SpawnFailure(t *testing.T) {
	sb := &mockSandbox{runErr: fmt.Errorf("%w: no such file", profiler.ErrSpawn)}
	srv := newServer(sb, nil)

	rec := postRun(t, srv.Handler(), domain.ExecutionRequest{Language: "python", Code: "x"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, sb.closed)
}

func TestHandleRun_Timeout(t *testing.T) {
	sb := &mockSandbox{runErr: context.DeadlineExceeded}
	srv := newServer(sb, nil)

	rec := postRun(t, srv.Handler(), domain.ExecutionRequest{Language: "python", Code: "x"})
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestHandleRun_FactoryFailure(t *testing.T) {
	srv := newServer(nil, errors.New("docker unreachable"))
	rec := postRun(t, srv.Handler(), domain.ExecutionRequest{Language: "python", Code: "x"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleRun_SetupReceivesLibraries(t *testing.T) {
	sb := &mockSandbox{result: &domain.ExecutionResult{}}
	srv := newServer(sb, nil)

	rec := postRun(t, srv.Handler(), domain.ExecutionRequest{
		Language:  "python",
		Code:      "import numpy",
		Libraries: []string{"numpy", "pandas"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"numpy", "pandas"}, sb.libs)
}

func TestHandleRun_MethodNotAllowed(t *testing.T) {
	srv := newServer(&mockSandbox{}, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/run", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := newServer(&mockSandbox{}, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
