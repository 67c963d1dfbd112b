package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/tendril/internal/runtime"
	tendrilhttp "github.com/aretw0/tendril/pkg/adapters/http"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/apikey"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/metrics"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func greeterBot() domain.Bot {
	return domain.Bot{
		ID:   "greeter",
		Name: "Greeter",
		Nodes: []domain.Node{
			{
				ID:      "welcome",
				Title:   "Welcome",
				Message: "Hello!",
				Output:  domain.Output{Type: domain.OutputOptions},
				Options: []domain.Option{
					{ID: "o-name", Label: "Introduce yourself", NextNodeID: "ask"},
					{ID: "o-bye", Label: "Leave", NextNodeID: "bye"},
				},
			},
			{
				ID:              "ask",
				Message:         "Your name?",
				Executor:        &domain.Executor{Type: domain.ExecutorInput, Input: &domain.InputConfig{Key: "name", Type: domain.InputText, RetryLimit: 2}},
				InputNextNodeID: "done",
				Output:          domain.Output{Type: domain.OutputText},
			},
			{ID: "done", Message: "Hi {{name}}", Output: domain.Output{Type: domain.OutputText}},
			{ID: "bye", Message: "Bye", Output: domain.Output{Type: domain.OutputEnd}},
		},
	}
}

type fixture struct {
	server *tendrilhttp.Server
	repo   *memory.Repository
	http   *httptest.Server
}

func newFixture(t *testing.T, opts ...tendrilhttp.Option) *fixture {
	t.Helper()
	repo := memory.NewRepository(greeterBot())
	run := runner.New(repo, runtime.NewEngine(), session.NewManager(memory.NewStore()))
	srv := tendrilhttp.NewServer(repo, run, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{server: srv, repo: repo, http: ts}
}

func (f *fixture) do(t *testing.T, method, path, body string, header map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServer_HealthAndInfo(t *testing.T) {
	f := newFixture(t, tendrilhttp.WithVersion("1.2.3\n"))

	resp := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode(t, resp)["status"])

	info := decode(t, f.do(t, http.MethodGet, "/info", "", nil))
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "1.0.0", info["api_version"])

	spec := f.do(t, http.MethodGet, "/openapi.yaml", "", nil)
	assert.Equal(t, "text/yaml", spec.Header.Get("Content-Type"))
}

func TestServer_CORSPreflight(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodOptions, "/api/bots/greeter/chat", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "SessionId")
	assert.Equal(t, "SessionId", resp.Header.Get("Access-Control-Expose-Headers"))
}

func TestServer_GetConfig(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/bots/greeter/config", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decode(t, resp)["data"].(map[string]any)
	assert.Equal(t, "greeter", data["id"])
	assert.Len(t, data["nodes"], 4)

	missing := f.do(t, http.MethodGet, "/api/bots/ghost/config", "", nil)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestServer_SetConfig(t *testing.T) {
	f := newFixture(t)

	body := `{"bot": {"id": "ignored", "name": "Renamed", "nodes": [
		{"id": "a", "message": "Start", "output": {"type": "options"}, "options": [{"id": "o1", "label": "Go", "nextNodeId": "b"}]},
		{"id": "b", "message": "Done", "output": "end"},
		{"id": "c", "message": "Island", "output": "text"}
	]}}`
	resp := f.do(t, http.MethodPost, "/api/bots/greeter/config", body, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	assert.NotEmpty(t, out["message"])
	require.Len(t, out["warnings"], 1)
	assert.Equal(t, "c", out["warnings"].([]any)[0].(map[string]any)["nodeId"])

	saved, err := f.repo.Get(context.Background(), "greeter")
	require.NoError(t, err)
	assert.Equal(t, "greeter", saved.ID, "the URL id wins")
	assert.Equal(t, "Renamed", saved.Name)
	assert.Len(t, saved.Nodes, 3)
}

func TestServer_SetConfigRejects(t *testing.T) {
	f := newFixture(t)

	malformed := f.do(t, http.MethodPost, "/api/bots/greeter/config", `{"name": "no nodes"}`, nil)
	assert.Equal(t, http.StatusBadRequest, malformed.StatusCode)

	broken := f.do(t, http.MethodPost, "/api/bots/greeter/config", `{"nodes": [
		{"id": "a", "output": "options"}, {"id": "a", "output": "options"}
	]}`, nil)
	require.Equal(t, http.StatusBadRequest, broken.StatusCode)
	assert.NotEmpty(t, decode(t, broken)["errors"])

	stored, err := f.repo.Get(context.Background(), "greeter")
	require.NoError(t, err)
	assert.Len(t, stored.Nodes, 4, "rejected saves leave the stored bot alone")
}

func TestServer_Validate(t *testing.T) {
	f := newFixture(t)

	stored := decode(t, f.do(t, http.MethodPost, "/api/bots/greeter/validate", "", nil))
	assert.Empty(t, stored["errors"])
	assert.Empty(t, stored["warnings"])

	report := decode(t, f.do(t, http.MethodPost, "/api/bots/greeter/validate",
		`{"nodes": [{"id": "a", "options": [{"id": "o1", "label": "Lost", "nextNodeId": "ghost"}]}]}`, nil))
	warnings := report["warnings"].([]any)
	require.Len(t, warnings, 1)
	assert.Equal(t, "dangling_target", warnings[0].(map[string]any)["code"])
}

func TestServer_Graph(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/api/bots/greeter/graph", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		sb.WriteString(scanner.Text() + "\n")
	}
	assert.True(t, strings.HasPrefix(sb.String(), "graph TD"))
	assert.Contains(t, sb.String(), "welcome")
}

func TestServer_ChatConversation(t *testing.T) {
	f := newFixture(t)

	first := f.do(t, http.MethodPost, "/api/bots/greeter/chat", "", nil)
	require.Equal(t, http.StatusOK, first.StatusCode)
	sessionID := first.Header.Get("SessionId")
	require.NotEmpty(t, sessionID)

	turn := decode(t, first)
	assert.Equal(t, "options", turn["type"])
	nodeData := turn["nodeData"].(map[string]any)
	assert.Equal(t, "welcome", nodeData["node"].(map[string]any)["id"])

	header := map[string]string{"SessionId": sessionID}
	input := decode(t, f.do(t, http.MethodPost, "/api/bots/greeter/chat", `{"input": "o-name"}`, header))
	assert.Equal(t, "input", input["type"])

	done := decode(t, f.do(t, http.MethodPost, "/api/bots/greeter/chat", `{"input": "Ada"}`, header))
	assert.Equal(t, "text", done["type"])
	assert.Equal(t, "Hi Ada", done["nodeData"])
}

func TestServer_ChatSessionCookie(t *testing.T) {
	f := newFixture(t)

	first := f.do(t, http.MethodPost, "/api/bots/greeter/chat", "", nil)
	require.Equal(t, http.StatusOK, first.StatusCode)

	var cookie *http.Cookie
	for _, c := range first.Cookies() {
		if c.Name == tendrilhttp.SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, first.Header.Get("SessionId"), cookie.Value)

	req, err := http.NewRequest(http.MethodPost, f.http.URL+"/api/bots/greeter/chat", strings.NewReader(`{"input": "o-bye"}`))
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	turn := decode(t, resp)
	assert.Equal(t, "text", turn["type"])
	assert.Equal(t, true, turn["sessionEnded"])
}

func TestServer_ChatErrors(t *testing.T) {
	f := newFixture(t)

	unknown := f.do(t, http.MethodPost, "/api/bots/greeter/chat", "", map[string]string{"SessionId": "nope"})
	assert.Equal(t, http.StatusNotFound, unknown.StatusCode)

	missingBot := f.do(t, http.MethodPost, "/api/bots/ghost/chat", "", nil)
	assert.Equal(t, http.StatusNotFound, missingBot.StatusCode)

	first := f.do(t, http.MethodPost, "/api/bots/greeter/chat", "", nil)
	header := map[string]string{"SessionId": first.Header.Get("SessionId")}

	badOption := f.do(t, http.MethodPost, "/api/bots/greeter/chat", `{"input": "o-none"}`, header)
	assert.Equal(t, http.StatusBadRequest, badOption.StatusCode)

	badBody := f.do(t, http.MethodPost, "/api/bots/greeter/chat", `{"input": `, header)
	assert.Equal(t, http.StatusBadRequest, badBody.StatusCode)

	ended := f.do(t, http.MethodPost, "/api/bots/greeter/chat", `{"input": "o-bye"}`, header)
	require.Equal(t, http.StatusOK, ended.StatusCode)
	gone := f.do(t, http.MethodPost, "/api/bots/greeter/chat", `{"input": "o-name"}`, header)
	assert.Equal(t, http.StatusGone, gone.StatusCode)

	require.NoError(t, f.repo.Save(context.Background(), &domain.Bot{ID: "other", Nodes: []domain.Node{domain.NewWelcomeNode()}}))
	crossBot := f.do(t, http.MethodPost, "/api/bots/other/chat", "", header)
	assert.Equal(t, http.StatusNotFound, crossBot.StatusCode)

	huge := f.do(t, http.MethodPost, "/api/bots/greeter/chat", `{"input": "`+strings.Repeat("x", runner.DefaultMaxInputSize+1)+`"}`, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, huge.StatusCode)
}

func TestServer_ChatRequiresKey(t *testing.T) {
	keys, err := apikey.New("secret", "tendril")
	require.NoError(t, err)
	f := newFixture(t, tendrilhttp.WithKeys(keys))

	anonymous := f.do(t, http.MethodPost, "/api/bots/greeter/chat", "", nil)
	assert.Equal(t, http.StatusUnauthorized, anonymous.StatusCode)

	otherKey, err := keys.Issue("other", "tester", time.Hour)
	require.NoError(t, err)
	wrongBot := f.do(t, http.MethodPost, "/api/bots/greeter/chat", "", map[string]string{"Authorization": "Bearer " + otherKey})
	assert.Equal(t, http.StatusForbidden, wrongBot.StatusCode)

	key, err := keys.Issue("greeter", "tester", time.Hour)
	require.NoError(t, err)
	ok := f.do(t, http.MethodPost, "/api/bots/greeter/chat", "", map[string]string{"Authorization": "Bearer " + key})
	assert.Equal(t, http.StatusOK, ok.StatusCode)
}

func TestServer_MetricsCountTurns(t *testing.T) {
	m := metrics.New()
	f := newFixture(t, tendrilhttp.WithMetrics(m))

	f.do(t, http.MethodPost, "/api/bots/greeter/chat", "", nil)

	resp := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		sb.WriteString(scanner.Text() + "\n")
	}
	assert.Contains(t, sb.String(), `tendril_turns_total{bot_id="greeter",type="options"} 1`)
}

func TestServer_EventsStreamDiffs(t *testing.T) {
	f := newFixture(t)

	first := f.do(t, http.MethodPost, "/api/bots/greeter/chat", "", nil)
	sessionID := first.Header.Get("SessionId")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.http.URL+"/events?session_id="+sessionID+"&watch=node", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	reader := bufio.NewReader(stream.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	require.Eventually(t, func() bool {
		return f.server.Streams.Subscribers(sessionID) == 1
	}, time.Second, 10*time.Millisecond)

	f.do(t, http.MethodPost, "/api/bots/greeter/chat", `{"input": "o-name"}`, map[string]string{"SessionId": sessionID})

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			break
		}
	}
	assert.Contains(t, line, `"current_node_id":"ask"`)
}

func TestServer_EventsRequireSession(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/events", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_ChatActionAtInputNode(t *testing.T) {
	f := newFixture(t)

	first := f.do(t, http.MethodPost, "/api/bots/greeter/chat", "", nil)
	require.Equal(t, http.StatusOK, first.StatusCode)
	header := map[string]string{"SessionId": first.Header.Get("SessionId")}

	ask := decode(t, f.do(t, http.MethodPost, "/api/bots/greeter/chat", `{"input": "o-name"}`, header))
	require.Equal(t, "input", ask["type"])

	typed := decode(t, f.do(t, http.MethodPost, "/api/bots/greeter/chat", `{"input": "__end"}`, header))
	assert.Equal(t, "text", typed["type"])
	assert.Equal(t, "Hi __end", typed["nodeData"])

	back := decode(t, f.do(t, http.MethodPost, "/api/bots/greeter/chat", `{"action": "back"}`, header))
	assert.Equal(t, "input", back["type"])

	ended := f.do(t, http.MethodPost, "/api/bots/greeter/chat", `{"action": "end"}`, header)
	require.Equal(t, http.StatusOK, ended.StatusCode)
	gone := f.do(t, http.MethodPost, "/api/bots/greeter/chat", `{"input": "Ada"}`, header)
	assert.Equal(t, http.StatusGone, gone.StatusCode)
}
