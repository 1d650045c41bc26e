//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pokvault/pokvault/internal/api/handlers"
	"github.com/pokvault/pokvault/internal/embed"
	"github.com/pokvault/pokvault/internal/repository"
	"github.com/pokvault/pokvault/internal/server"
	"github.com/pokvault/pokvault/internal/service"
	"github.com/pokvault/pokvault/internal/testutil"
)

const testInternalKey = "e2e-internal-key"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	AuthSvc      *service.AuthService
	Generator    *service.EmbeddingGenerator
	UserID       string
	AuthToken    string
	HTTPClient   *http.Client
}

// topicProvider embeds texts onto fixed axes by topic keyword so semantic
// search produces a predictable ranking without a real inference service.
type topicProvider struct{}

func (topicProvider) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, embed.DefaultDimensions)
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "coffee"):
		v[1] = 1
	case strings.Contains(lower, "bread"):
		v[0] = 1
	default:
		v[2] = 1
	}
	return v, nil
}

// SetupE2EEnv creates a full E2E test environment with a database container
// and a running HTTP server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.ServerURL, env.ServerCloser = env.startServer(port)

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Bootstrap creates a user and an API token for authenticated requests
func (e *E2ETestEnv) Bootstrap() {
	user, err := e.AuthSvc.CreateUser(e.Ctx, "e2e-user")
	if err != nil {
		e.T.Fatalf("failed to create user: %v", err)
	}
	e.UserID = user.ID

	token, err := e.AuthSvc.CreateToken(e.Ctx, user.ID, "e2e-token")
	if err != nil {
		e.T.Fatalf("failed to create token: %v", err)
	}
	e.AuthToken = token
}

// WaitForEmbeddings blocks until all dispatched embedding generation
// goroutines have finished.
func (e *E2ETestEnv) WaitForEmbeddings() {
	e.Generator.Wait()
}

// startServer wires the full service stack and starts the HTTP server
func (e *E2ETestEnv) startServer(port int) (string, func()) {
	userRepo := repository.NewUserRepository(e.Pool)
	tokenRepo := repository.NewAPITokenRepository(e.Pool)
	pokRepo := repository.NewPokRepository(e.Pool)

	provider := topicProvider{}
	e.Generator = service.NewEmbeddingGenerator(provider, pokRepo)
	e.AuthSvc = service.NewAuthService(userRepo, tokenRepo)

	pokSvc := service.NewPokService(pokRepo, e.Generator)
	searchSvc := service.NewSearchEngine(pokRepo, provider, 0)
	backfill := service.NewBackfillCoordinator(pokRepo, e.Generator, 0, 0)

	router := server.NewRouter(server.RouterConfig{
		AuthValidator: e.AuthSvc,
		InternalKey:   testInternalKey,
		PokHandler:    handlers.NewPokHandler(pokSvc, searchSvc),
		AdminHandler:  handlers.NewAdminHandler(backfill),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("localhost:%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Errorf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, serverURL+"/health")

	closer := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}

	return serverURL, closer
}

func waitForServer(t *testing.T, healthURL string) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(healthURL)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("server did not become healthy in time")
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("PUT", path, body, authToken)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNoContent {
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// PostRaw performs a POST with arbitrary headers and returns the raw response
func (e *E2ETestEnv) PostRaw(path string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequest("POST", e.ServerURL+path, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return e.HTTPClient.Do(req)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port, nil
}
