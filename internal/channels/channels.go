package channels

// Loader for the static list of tracked channels.
//
// File shape (JSON, or YAML for .yaml/.yml):
//
//	{"channels": [{"handle": "@example", "name": "Example"}, {"id": "UC...", "name": "Other", "note": "..."}]}

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logging "channel-tracker/internal/infra/log"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type refKind int

const (
	kindHandle refKind = iota + 1
	kindID
)

// ChannelRef identifies a channel either by handle or by raw channel ID.
// The zero value is invalid.
type ChannelRef struct {
	kind  refKind
	value string
}

// Handle builds a handle reference. A leading @ is dropped.
func Handle(h string) ChannelRef {
	return ChannelRef{kind: kindHandle, value: strings.TrimPrefix(strings.TrimSpace(h), "@")}
}

// RawID builds a reference to an already known channel ID.
func RawID(id string) ChannelRef {
	return ChannelRef{kind: kindID, value: strings.TrimSpace(id)}
}

func (r ChannelRef) IsHandle() bool { return r.kind == kindHandle }
func (r ChannelRef) IsID() bool     { return r.kind == kindID }

// Value is the handle without @, or the channel ID.
func (r ChannelRef) Value() string { return r.value }

func (r ChannelRef) String() string {
	if r.kind == kindHandle {
		return "@" + r.value
	}
	return r.value
}

// Channel is one configured entry.
type Channel struct {
	Ref  ChannelRef
	Name string
	Note string
}

// ConfigError reports an unusable channel file. Index is -1 for file-level problems.
type ConfigError struct {
	Path  string
	Index int
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("channel config %s: entry %d: %v", e.Path, e.Index, e.Err)
	}
	return fmt.Sprintf("channel config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Load reads path and returns the channels in file order.
func Load(path string) ([]Channel, error) {
	fileErr := func(err error) error { return &ConfigError{Path: path, Index: -1, Err: err} }

	if _, err := os.Stat(path); err != nil {
		return nil, fileErr(err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		v.SetConfigType("yaml")
	default:
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fileErr(fmt.Errorf("failed to parse: %w", err))
	}

	if !v.IsSet("channels") {
		return nil, fileErr(errors.New(`missing "channels" list`))
	}
	raw, ok := v.Get("channels").([]interface{})
	if !ok {
		return nil, fileErr(errors.New(`"channels" must be a list`))
	}

	channels := make([]Channel, 0, len(raw))
	for i, item := range raw {
		ch, err := parseEntry(item)
		if err != nil {
			return nil, &ConfigError{Path: path, Index: i, Err: err}
		}
		channels = append(channels, ch)
	}

	logging.LogDebug("Loaded channel config", zap.String("file", path), zap.Int("count", len(channels)))
	return channels, nil
}

func parseEntry(item interface{}) (Channel, error) {
	fields, ok := item.(map[string]interface{})
	if !ok {
		return Channel{}, errors.New("entry must be an object")
	}

	get := func(key string) (string, bool, error) {
		for k, val := range fields {
			if !strings.EqualFold(k, key) {
				continue
			}
			s, ok := val.(string)
			if !ok {
				return "", true, fmt.Errorf("%q must be a string", key)
			}
			return strings.TrimSpace(s), true, nil
		}
		return "", false, nil
	}

	handle, hasHandle, err := get("handle")
	if err != nil {
		return Channel{}, err
	}
	id, hasID, err := get("id")
	if err != nil {
		return Channel{}, err
	}
	name, _, err := get("name")
	if err != nil {
		return Channel{}, err
	}
	note, _, err := get("note")
	if err != nil {
		return Channel{}, err
	}

	var ch Channel
	switch {
	case hasHandle && hasID:
		return Channel{}, errors.New(`set either "handle" or "id", not both`)
	case hasHandle:
		ch.Ref = Handle(handle)
	case hasID:
		ch.Ref = RawID(id)
	default:
		return Channel{}, errors.New(`one of "handle" or "id" is required`)
	}
	if ch.Ref.Value() == "" {
		return Channel{}, errors.New("channel reference is empty")
	}
	if name == "" {
		return Channel{}, errors.New(`"name" is required`)
	}
	ch.Name = name
	ch.Note = note
	return ch, nil
}
