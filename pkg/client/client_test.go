package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/tendril/internal/runtime"
	tendrilhttp "github.com/aretw0/tendril/pkg/adapters/http"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/client"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func service(t *testing.T) (*httptest.Server, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository(domain.Bot{
		ID:   "shop",
		Name: "Shop",
		Nodes: []domain.Node{
			{
				ID:      "start",
				Message: "Welcome",
				Output:  domain.Output{Type: domain.OutputOptions},
				Options: []domain.Option{{ID: "o-buy", Label: "Buy", NextNodeID: "done"}},
			},
			{ID: "done", Message: "Thanks", Output: domain.Output{Type: domain.OutputEnd}},
		},
	})
	run := runner.New(repo, runtime.NewEngine(), session.NewManager(memory.NewStore()))
	ts := httptest.NewServer(tendrilhttp.NewServer(repo, run).Handler())
	t.Cleanup(ts.Close)
	return ts, repo
}

func TestClient_LoadAndSave(t *testing.T) {
	ts, repo := service(t)
	c := client.New(ts.URL)
	ctx := context.Background()

	bot, err := c.LoadBot(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, "Shop", bot.Name)
	require.Len(t, bot.Nodes, 2)

	bot.Name = "Store"
	bot.Nodes = append(bot.Nodes, domain.Node{ID: "island", Output: domain.Output{Type: domain.OutputText}})
	res, err := c.SaveBot(ctx, bot)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Message)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "island", res.Warnings[0].NodeID)

	stored, err := repo.Get(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, "Store", stored.Name)

	_, err = c.LoadBot(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_SaveRejectsStructuralErrors(t *testing.T) {
	ts, _ := service(t)
	c := client.New(ts.URL)

	bot := &domain.Bot{ID: "shop", Nodes: []domain.Node{
		{ID: "a", Output: domain.Output{Type: domain.OutputOptions}},
		{ID: "a", Output: domain.Output{Type: domain.OutputOptions}},
	}}
	_, err := c.SaveBot(context.Background(), bot)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.Errors)

	var agg *schema.AggregateError
	assert.ErrorAs(t, err, &agg)
}

func TestClient_Validate(t *testing.T) {
	ts, _ := service(t)
	c := client.New(ts.URL)

	report, err := c.Validate(context.Background(), &domain.Bot{ID: "shop", Nodes: []domain.Node{
		{ID: "a", Output: domain.Output{Type: domain.OutputOptions}, Options: []domain.Option{{ID: "o1", Label: "Nowhere"}}},
	}})
	require.NoError(t, err)
	assert.True(t, report.OK())
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "o1", report.Warnings[0].OptionID)
}

func TestClient_TurnPropagatesSession(t *testing.T) {
	ts, _ := service(t)
	c := client.New(ts.URL)
	ctx := context.Background()

	first, err := c.Turn(ctx, "shop", "")
	require.NoError(t, err)
	assert.Equal(t, domain.TurnOptions, first.Type)
	sessionID := c.SessionID("shop")
	require.NotEmpty(t, sessionID)

	last, err := c.Turn(ctx, "shop", "o-buy")
	require.NoError(t, err)
	assert.True(t, last.SessionEnded)
	assert.Empty(t, c.SessionID("shop"), "ended sessions are forgotten")

	restarted, err := c.Turn(ctx, "shop", "")
	require.NoError(t, err)
	assert.Equal(t, domain.TurnOptions, restarted.Type)
	assert.NotEqual(t, sessionID, c.SessionID("shop"))
}

func TestClient_ActEndsConversation(t *testing.T) {
	ts, _ := service(t)
	c := client.New(ts.URL)
	ctx := context.Background()

	_, err := c.Turn(ctx, "shop", "")
	require.NoError(t, err)
	require.NotEmpty(t, c.SessionID("shop"))

	ended, err := c.Act(ctx, "shop", domain.ActionEnd)
	require.NoError(t, err)
	assert.True(t, ended.SessionEnded)
	assert.Empty(t, c.SessionID("shop"))
}

func TestClient_TurnUnknownOption(t *testing.T) {
	ts, _ := service(t)
	c := client.New(ts.URL)
	ctx := context.Background()

	_, err := c.Turn(ctx, "shop", "")
	require.NoError(t, err)
	sessionID := c.SessionID("shop")

	_, err = c.Turn(ctx, "shop", "o-nope")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, sessionID, c.SessionID("shop"), "a rejected option keeps the session")
}

func TestClient_SingleFlightPerAction(t *testing.T) {
	var (
		calls   atomic.Int32
		release = make(chan struct{})
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "shop", "nodes": []any{}}})
	}))
	defer ts.Close()

	c := client.New(ts.URL)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*domain.Bot, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bot, err := c.LoadBot(ctx, "shop")
			assert.NoError(t, err)
			results[i] = bot
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent loads share one request")
	for _, bot := range results {
		require.NotNil(t, bot)
		assert.Equal(t, domain.WelcomeNodeID, bot.Nodes[0].ID)
	}
}

func TestClient_TestEndpoint(t *testing.T) {
	var got domain.APIConfig
	c := client.New("http://unused", client.WithAPIExecutor(ports.APIExecutorFunc(func(ctx context.Context, cfg domain.APIConfig) (any, error) {
		got = cfg
		return map[string]any{"ok": true}, nil
	})))

	res, err := c.TestEndpoint(context.Background(), "shop", domain.APIConfig{Endpoint: "https://api.test/ping", Method: "GET"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, res)
	assert.Equal(t, "https://api.test/ping", got.Endpoint)
}

// gatedService records the name of every saved bot and holds the first
// request until release is closed.
func gatedService(t *testing.T, release <-chan struct{}) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu    sync.Mutex
		names []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		name, _ := body["name"].(string)
		if name == "" {
			name, _ = body["input"].(string)
		}

		mu.Lock()
		names = append(names, name)
		first := len(names) == 1
		mu.Unlock()
		if first {
			<-release
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"message": "saved " + name, "warnings": []any{}, "type": "text", "nodeData": name})
	}))
	t.Cleanup(ts.Close)
	return ts, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), names...)
	}
}

func shopBot(name string) *domain.Bot {
	return &domain.Bot{ID: "shop", Name: name, Nodes: []domain.Node{
		{ID: "start", Output: domain.Output{Type: domain.OutputText}},
	}}
}

func TestClient_SaveWithNewerEditsIsQueued(t *testing.T) {
	release := make(chan struct{})
	ts, received := gatedService(t, release)
	c := client.New(ts.URL)
	ctx := context.Background()

	var wg sync.WaitGroup
	var first, second *client.SaveResult
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, err := c.SaveBot(ctx, shopBot("v1"))
		assert.NoError(t, err)
		first = res
	}()
	require.Eventually(t, func() bool { return len(received()) == 1 }, time.Second, 5*time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		res, err := c.SaveBot(ctx, shopBot("v2"))
		assert.NoError(t, err)
		second = res
	}()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"v1"}, received(), "the newer save waits for the running one")

	close(release)
	wg.Wait()

	assert.Equal(t, []string{"v1", "v2"}, received())
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, "saved v1", first.Message)
	assert.Equal(t, "saved v2", second.Message)
}

func TestClient_IdenticalSavesShareOneRequest(t *testing.T) {
	release := make(chan struct{})
	ts, received := gatedService(t, release)
	c := client.New(ts.URL)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*client.SaveResult, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.SaveBot(ctx, shopBot("same"))
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	require.Eventually(t, func() bool { return len(received()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []string{"same"}, received())
	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, "saved same", res.Message)
	}
}

func TestClient_DifferentBotsSaveConcurrently(t *testing.T) {
	release := make(chan struct{})
	ts, received := gatedService(t, release)
	c := client.New(ts.URL)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"shop", "support"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			bot := shopBot(id)
			bot.ID = id
			_, err := c.SaveBot(ctx, bot)
			assert.NoError(t, err)
		}(id)
	}

	require.Eventually(t, func() bool { return len(received()) == 2 }, time.Second, 5*time.Millisecond,
		"saves of different bots do not wait for each other")
	close(release)
	wg.Wait()
	assert.ElementsMatch(t, []string{"shop", "support"}, received())
}

func TestClient_TurnWithDifferentInputIsSent(t *testing.T) {
	release := make(chan struct{})
	ts, received := gatedService(t, release)
	c := client.New(ts.URL)
	ctx := context.Background()

	var wg sync.WaitGroup
	turns := make([]domain.Turn, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		turn, err := c.Turn(ctx, "shop", "o-first")
		assert.NoError(t, err)
		turns[0] = turn
	}()
	require.Eventually(t, func() bool { return len(received()) == 1 }, time.Second, 5*time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		turn, err := c.Turn(ctx, "shop", "o-second")
		assert.NoError(t, err)
		turns[1] = turn
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []string{"o-first", "o-second"}, received())
	assert.Equal(t, "o-first", turns[0].Text)
	assert.Equal(t, "o-second", turns[1].Text)
}

func TestClient_SharedLoadsReturnCopies(t *testing.T) {
	var (
		calls   atomic.Int32
		release = make(chan struct{})
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "shop", "nodes": []any{
			map[string]any{"id": "start", "title": "Start", "output": map[string]any{"type": "options"}, "options": []any{}},
		}}})
	}))
	defer ts.Close()

	c := client.New(ts.URL)
	ctx := context.Background()

	var wg sync.WaitGroup
	bots := make([]*domain.Bot, 2)
	for i := range bots {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bot, err := c.LoadBot(ctx, "shop")
			assert.NoError(t, err)
			bots[i] = bot
		}(i)
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NotNil(t, bots[0])
	require.NotNil(t, bots[1])
	assert.NotSame(t, bots[0], bots[1])

	bots[0].Nodes[0].Title = "edited by A"
	assert.Equal(t, "Start", bots[1].Nodes[0].Title)
}

func TestClient_TestEndpointReturnsCopies(t *testing.T) {
	shared := map[string]any{"items": []any{map[string]any{"id": "1"}}}
	c := client.New("http://unused", client.WithAPIExecutor(ports.APIExecutorFunc(func(ctx context.Context, cfg domain.APIConfig) (any, error) {
		return shared, nil
	})))

	res, err := c.TestEndpoint(context.Background(), "shop", domain.APIConfig{Endpoint: "https://api.test/items", Method: "GET"})
	require.NoError(t, err)
	res.(map[string]any)["items"].([]any)[0].(map[string]any)["id"] = "changed"
	assert.Equal(t, "1", shared["items"].([]any)[0].(map[string]any)["id"])
}
