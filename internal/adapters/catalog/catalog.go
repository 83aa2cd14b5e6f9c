// Package catalog reads and writes the candidate list file produced by the
// harvester and consumed by each refresh cycle.
//
// Layout: {"fetched_at": RFC3339, "total_games": N, "games": [{"id","name"}]}.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/okian/streamscout/internal/domain/model"
	"github.com/okian/streamscout/pkg/atomicfile"
)

// Document is the on-disk candidate list.
type Document struct {
	FetchedAt  time.Time      `json:"fetched_at"`
	TotalGames int            `json:"total_games"`
	Games      []model.Entity `json:"games"`
}

// NewDocument stamps games with a fetch time and count.
func NewDocument(games []model.Entity, fetchedAt time.Time) Document {
	return Document{FetchedAt: fetchedAt, TotalGames: len(games), Games: games}
}

// Load reads the catalog at path. Records without a name are skipped and
// order is preserved. A missing file yields ErrNotFound.
func Load(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Document{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	if !gjson.ValidBytes(raw) {
		return Document{}, fmt.Errorf("%w: %s is not valid JSON", ErrCorrupt, path)
	}

	root := gjson.ParseBytes(raw)
	games := root.Get("games")
	if !games.IsArray() {
		return Document{}, fmt.Errorf("%w: %s has no games array", ErrCorrupt, path)
	}

	doc := Document{TotalGames: int(root.Get("total_games").Int())}
	if ts := root.Get("fetched_at").String(); ts != "" {
		doc.FetchedAt = parseTime(ts)
	}
	games.ForEach(func(_, g gjson.Result) bool {
		name := strings.TrimSpace(g.Get("name").String())
		if name == "" {
			return true
		}
		doc.Games = append(doc.Games, model.Entity{ID: g.Get("id").String(), Name: name})
		return true
	})
	return doc, nil
}

// Names returns the game names in catalog order.
func (d Document) Names() []string {
	out := make([]string, len(d.Games))
	for i, g := range d.Games {
		out[i] = g.Name
	}
	return out
}

// Save writes doc to path by replacing the file atomically.
func Save(path string, doc Document) error {
	games := make([]model.Entity, len(doc.Games))
	for i, g := range doc.Games {
		games[i] = model.Entity{ID: g.ID, Name: g.Name}
	}
	doc.Games = games
	doc.TotalGames = len(games)

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return atomicfile.Write(path, raw, 0o644)
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
