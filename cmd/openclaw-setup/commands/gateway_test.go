package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"openclaw-setup/internal/domain"
)

// fakeGateway serves the setup API from memory and records what it was
// sent.
type fakeGateway struct {
	t   *testing.T
	srv *httptest.Server

	mu         sync.Mutex
	configured bool
	pending    []string
	runFail    bool
	consoleErr bool

	runs       []domain.RunPayload
	approved   []domain.DeviceApproveRequest
	pairings   []domain.PairingApproveRequest
	consoles   []domain.ConsoleRequest
	savedCfg   []string
	imports    []string // content types
	importBody []byte
	resets     int
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	g := &fakeGateway{t: t, pending: []string{"dev-1", "dev-2"}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /setup/api/status", func(w http.ResponseWriter, _ *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		writeJSON(w, domain.StatusResponse{
			Configured:      g.configured,
			OpenclawVersion: "2026.10.1",
			AuthGroups: []domain.ProviderGroup{
				{Value: "openai", Label: "OpenAI", Options: []domain.AuthOption{
					{Value: "openai-api-key", Label: "API key"},
					{Value: "openai-codex", Label: "Codex OAuth"},
				}},
				{Value: "google", Label: "Google", Options: []domain.AuthOption{
					{Value: "google-gemini-cli", Label: "Gemini CLI"},
				}},
			},
		})
	})
	mux.HandleFunc("GET /setup/api/debug", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"channels": map[string]any{"telegram": map[string]bool{"enabled": true}, "discord": false}})
	})
	mux.HandleFunc("GET /setup/api/tailscale/status", func(w http.ResponseWriter, _ *http.Request) {
		yes := true
		writeJSON(w, domain.TailscaleStatus{OK: true, Connected: true, Installed: &yes, Hostname: "claw", IP: "100.64.0.7"})
	})
	mux.HandleFunc("POST /setup/api/tailscale/configure", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, domain.TailscaleStatus{OK: true, Connected: true})
	})
	mux.HandleFunc("POST /setup/api/run", func(w http.ResponseWriter, r *http.Request) {
		var p domain.RunPayload
		g.decode(r, &p)
		g.mu.Lock()
		defer g.mu.Unlock()
		g.runs = append(g.runs, p)
		if g.runFail {
			writeJSON(w, domain.RunResponse{OK: false, Output: "onboard exited 1", Error: "invalid api key"})
			return
		}
		g.configured = true
		writeJSON(w, domain.RunResponse{OK: true, Output: "onboarded", GatewayToken: "gw-token-1"})
	})
	mux.HandleFunc("GET /setup/api/devices/pending", func(w http.ResponseWriter, _ *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		writeJSON(w, domain.PendingDevicesResponse{RequestIDs: g.pending})
	})
	mux.HandleFunc("POST /setup/api/devices/approve", func(w http.ResponseWriter, r *http.Request) {
		var req domain.DeviceApproveRequest
		g.decode(r, &req)
		g.mu.Lock()
		defer g.mu.Unlock()
		g.approved = append(g.approved, req)
		if req.RequestID == "bad" {
			writeJSON(w, domain.ActionResult{OK: false, Error: "unknown request"})
			return
		}
		writeJSON(w, domain.ActionResult{OK: true})
	})
	mux.HandleFunc("POST /setup/api/pairing/approve", func(w http.ResponseWriter, r *http.Request) {
		var req domain.PairingApproveRequest
		g.decode(r, &req)
		g.mu.Lock()
		defer g.mu.Unlock()
		g.pairings = append(g.pairings, req)
		writeJSON(w, domain.ActionResult{OK: true, Output: "paired user 42"})
	})
	mux.HandleFunc("POST /setup/api/console/run", func(w http.ResponseWriter, r *http.Request) {
		var req domain.ConsoleRequest
		g.decode(r, &req)
		g.mu.Lock()
		defer g.mu.Unlock()
		g.consoles = append(g.consoles, req)
		if g.consoleErr {
			writeJSON(w, domain.ActionResult{OK: false, Output: "doctor: 2 problems", Error: "exit status 1"})
			return
		}
		writeJSON(w, domain.ActionResult{OK: true, Output: "ran " + req.Command})
	})
	mux.HandleFunc("GET /setup/api/config/raw", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, domain.RawConfig{OK: true, Content: `{"gateway":{}}`, Path: "/data/openclaw.json"})
	})
	mux.HandleFunc("POST /setup/api/config/raw", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Content string `json:"content"`
		}
		g.decode(r, &body)
		g.mu.Lock()
		defer g.mu.Unlock()
		g.savedCfg = append(g.savedCfg, body.Content)
		writeJSON(w, domain.SaveConfigResult{OK: true, RestartOutput: "gateway restarted"})
	})
	mux.HandleFunc("GET /setup/api/gateway-token", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, domain.GatewayTokenResponse{OK: true, Token: "gw-token-1"})
	})
	mux.HandleFunc("POST /setup/api/reset", func(w http.ResponseWriter, _ *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.resets++
		g.configured = false
		writeJSON(w, domain.ActionResult{OK: true, Output: "config removed"})
	})
	mux.HandleFunc("POST /setup/import", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		g.mu.Lock()
		defer g.mu.Unlock()
		g.imports = append(g.imports, r.Header.Get("Content-Type"))
		g.importBody = body
		writeJSON(w, domain.ActionResult{OK: true, Output: "restored"})
	})

	g.srv = httptest.NewServer(mux)
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGateway) decode(r *http.Request, v any) {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		g.t.Errorf("decode %s: %v", r.URL.Path, err)
	}
}


func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// testEnv is an isolated config file and state directory pointed at a
// gateway.
type testEnv struct {
	t       *testing.T
	dir     string
	cfgPath string
	gw      *fakeGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gw := newFakeGateway(t)
	return newTestEnvFor(t, gw, gw.srv.URL)
}

func newTestEnvFor(t *testing.T, gw *fakeGateway, baseURL string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`gateway:
  base_url: %s
  timeout: 5s
http:
  rate_limit: 0
  circuit_breaker:
    enabled: false
run:
  stages:
    token: 1ms
    channels: 1ms
    gateway: 1ms
    health: 1ms
pairing:
  interval: 10ms
  remove_delay: 0s
state:
  path: %s
logger:
  level: debug
  format: text
  output: %s
`, baseURL, filepath.Join(dir, "state.db"), filepath.Join(dir, "test.log"))

	path := filepath.Join(dir, "openclaw-setup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return &testEnv{t: t, dir: dir, cfgPath: path, gw: gw}
}

// run executes the command tree and returns stdout, stderr and the exit
// code.
func (e *testEnv) run(stdin string, args ...string) (string, string, int) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	args = append([]string{"--config", e.cfgPath}, args...)
	code := Execute(context.Background(), args, bytes.NewBufferString(stdin), &out, &errOut)
	return out.String(), errOut.String(), code
}
