package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/tendril/pkg/codec"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

var _ ports.BotRepository = (*Repository)(nil)

// Repository implements ports.BotRepository over a directory of bot documents.
// A bot with id X lives in X.json, X.yaml or X.yml. Saves always write X.json.
type Repository struct {
	Dir string
}

// NewRepository creates a repository reading from dir.
func NewRepository(dir string) *Repository {
	return &Repository{Dir: dir}
}

var documentExts = []string{".json", ".yaml", ".yml"}

// LoadDocument reads and normalizes one bot document (JSON or YAML, by extension).
func LoadDocument(path string) (*domain.Bot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return codec.DecodeYAML(data)
	default:
		return codec.DecodeJSON(data)
	}
}

// Get loads the document of botID.
func (r *Repository) Get(ctx context.Context, botID string) (*domain.Bot, error) {
	if botID == "" || strings.ContainsAny(botID, `/\`) {
		return nil, fmt.Errorf("%w: %q", domain.ErrNotFound, botID)
	}
	for _, ext := range documentExts {
		path := filepath.Join(r.Dir, botID+ext)
		bot, err := LoadDocument(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("bot %s: %w", botID, err)
		}
		if bot.ID == "" {
			bot.ID = botID
		}
		return bot, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, botID)
}

// Save writes the serialized bot to <id>.json.
func (r *Repository) Save(ctx context.Context, bot *domain.Bot) error {
	if bot.ID == "" {
		return fmt.Errorf("bot missing ID")
	}
	data, err := codec.EncodeJSON(bot)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(r.Dir, bot.ID+".json"), data, 0o644)
}

// List returns the ids of all documents in the directory.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	ids := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		for _, known := range documentExts {
			if strings.EqualFold(ext, known) {
				id := strings.TrimSuffix(entry.Name(), ext)
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}
