package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"tg_joke_bot/internal/domain"
)

const (
	// UsersFileName holds the profiles keyed by stringified user ID.
	UsersFileName = "users.json"
	// BotStatsFileName holds the bot aggregate.
	BotStatsFileName = "bot_stats.json"
)

// FilePersister stores statistics as two JSON files under a directory. Each
// save rewrites both files in full.
type FilePersister struct {
	dir string
}

// NewFilePersister creates dir if needed.
func NewFilePersister(dir string) (*FilePersister, error) {
	if dir == "" {
		return nil, errors.New("stats data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create stats data directory: %w", err)
	}
	return &FilePersister{dir: dir}, nil
}

// Dir returns the data directory.
func (p *FilePersister) Dir() string {
	return p.dir
}

// Load reads both files. Missing files are not an error: a missing users file
// yields no profiles and a missing aggregate file yields a nil Bot.
func (p *FilePersister) Load(ctx context.Context) (domain.Snapshot, error) {
	if p == nil {
		return domain.Snapshot{}, errors.New("file persister is not initialized")
	}
	if ctx == nil {
		return domain.Snapshot{}, errors.New("context is required")
	}

	snapshot := domain.Snapshot{Users: make(map[int64]domain.UserProfile)}

	var raw map[string]domain.UserProfile
	found, err := readJSON(filepath.Join(p.dir, UsersFileName), &raw)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load users: %w", err)
	}
	if found {
		for key, profile := range raw {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return domain.Snapshot{}, fmt.Errorf("load users: invalid user id %q: %w", key, err)
			}
			profile.UserID = id
			snapshot.Users[id] = profile
		}
	}

	var bot domain.BotAggregate
	found, err = readJSON(filepath.Join(p.dir, BotStatsFileName), &bot)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load bot stats: %w", err)
	}
	if found {
		snapshot.Bot = &bot
	}

	return snapshot, nil
}

// Save rewrites both files.
func (p *FilePersister) Save(ctx context.Context, snapshot domain.Snapshot) error {
	if p == nil {
		return errors.New("file persister is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	users := make(map[string]domain.UserProfile, len(snapshot.Users))
	for id, profile := range snapshot.Users {
		users[strconv.FormatInt(id, 10)] = profile
	}
	if err := writeJSON(filepath.Join(p.dir, UsersFileName), users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}

	if snapshot.Bot != nil {
		if err := writeJSON(filepath.Join(p.dir, BotStatsFileName), snapshot.Bot); err != nil {
			return fmt.Errorf("save bot stats: %w", err)
		}
	}

	return nil
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}

	return nil
}
