package ports_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/aretw0/tendril/pkg/codec"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// docRepo keeps serialized documents, the way a document store would.
type docRepo struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func (r *docRepo) Get(ctx context.Context, botID string) (*domain.Bot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[botID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return codec.DecodeJSON(doc)
}

func (r *docRepo) Save(ctx context.Context, bot *domain.Bot) error {
	doc, err := codec.EncodeJSON(bot)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[bot.ID] = doc
	return nil
}

func (r *docRepo) List(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func TestBotRepositoryContract_DocumentStore(t *testing.T) {
	ports.RunBotRepositoryContract(t, &docRepo{docs: make(map[string][]byte)})
}

func TestAPIExecutorFunc(t *testing.T) {
	var exec ports.APIExecutor = ports.APIExecutorFunc(func(ctx context.Context, cfg domain.APIConfig) (any, error) {
		return cfg.Endpoint, nil
	})
	got, err := exec.Fetch(context.Background(), domain.APIConfig{Endpoint: "https://x"})
	if err != nil || got != "https://x" {
		t.Errorf("Fetch() = %v, %v", got, err)
	}
}
