package connection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
)

// SettingsKey is the settings entry holding the serialized connection list.
const SettingsKey = "connections"

// Settings is the keyed settings storage the Store persists into. A missing
// key reads as the empty string.
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Store is the ordered list of configured connections. Every read rehydrates
// from Settings and every mutation writes the whole list back.
type Store struct {
	settings Settings

	mu    sync.Mutex
	conns []Connection
}

func NewStore(settings Settings) *Store {
	return &Store{settings: settings}
}

// Load reads the persisted list, replacing the in-memory sequence. When filter
// is non-nil only connections of that kind are kept.
func (s *Store) Load(filter *Kind) ([]Connection, error) {
	raw, err := s.settings.GetSetting(SettingsKey)
	if err != nil {
		return nil, fmt.Errorf("reading connections: %w", err)
	}
	conns, err := decodeList(raw)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		kept := conns[:0]
		for _, c := range conns {
			if c.Kind == *filter {
				kept = append(kept, c)
			}
		}
		conns = kept
	}

	s.mu.Lock()
	s.conns = conns
	s.mu.Unlock()
	return s.All(), nil
}

// All returns a copy of the in-memory sequence.
func (s *Store) All() []Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Connection, len(s.conns))
	copy(out, s.conns)
	return out
}

// Save writes the in-memory sequence as keyed records in a single settings write.
func (s *Store) Save() error {
	s.mu.Lock()
	conns := make([]Connection, len(s.conns))
	copy(conns, s.conns)
	s.mu.Unlock()

	data, err := json.Marshal(conns)
	if err != nil {
		return fmt.Errorf("marshaling connections: %w", err)
	}
	if err := s.settings.SetSetting(SettingsKey, string(data)); err != nil {
		return fmt.Errorf("writing connections: %w", err)
	}
	return nil
}

// SelectByName reloads and returns the first connection named name, or nil.
func (s *Store) SelectByName(name string, filter *Kind) (*Connection, error) {
	conns, err := s.Load(filter)
	if err != nil {
		return nil, err
	}
	for i := range conns {
		if conns[i].Name == name {
			return &conns[i], nil
		}
	}
	return nil, nil
}

func (s *Store) Add(c Connection) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, err := s.Load(nil); err != nil {
		return err
	}
	s.mu.Lock()
	s.conns = append(s.conns, c)
	s.mu.Unlock()
	return s.Save()
}

// Update replaces the first connection named name.
func (s *Store) Update(name string, c Connection) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, err := s.Load(nil); err != nil {
		return err
	}
	s.mu.Lock()
	idx := s.indexLocked(name)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("connection not found: %s", name)
	}
	s.conns[idx] = c
	s.mu.Unlock()
	return s.Save()
}

// Remove deletes the first connection named name.
func (s *Store) Remove(name string) error {
	if _, err := s.Load(nil); err != nil {
		return err
	}
	s.mu.Lock()
	idx := s.indexLocked(name)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("connection not found: %s", name)
	}
	s.conns = append(s.conns[:idx], s.conns[idx+1:]...)
	s.mu.Unlock()
	return s.Save()
}

func (s *Store) indexLocked(name string) int {
	for i := range s.conns {
		if s.conns[i].Name == name {
			return i
		}
	}
	return -1
}

// --- Decoding ---

func decodeList(raw string) ([]Connection, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("parsing connections: %w", err)
	}

	conns := make([]Connection, 0, len(entries))
	for i, entry := range entries {
		c, ok := decodeEntry(entry)
		if !ok {
			grip.Warning(message.Fields{
				"message": "skipping unreadable connection entry",
				"index":   i,
				"entry":   string(entry),
			})
			continue
		}
		conns = append(conns, c)
	}
	return conns, nil
}

func decodeEntry(entry json.RawMessage) (Connection, bool) {
	trimmed := bytes.TrimSpace(entry)
	if len(trimmed) == 0 {
		return Connection{}, false
	}
	switch trimmed[0] {
	case '{':
		var fields map[string]any
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return Connection{}, false
		}
		return fromRecord(fields), true
	case '[':
		var values []any
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return Connection{}, false
		}
		return fromPositional(values), true
	}
	return Connection{}, false
}

// fromRecord reads the keyed encoding. Fields of the wrong type keep their defaults.
func fromRecord(f map[string]any) Connection {
	c := New(asString(f["name"]))
	if k, err := ParseKind(asString(f["kind"])); err == nil {
		c.Kind = k
	}
	if v, ok := f["host"]; ok {
		c.Host = asString(v)
	}
	c.Port = asPort(f["port"])
	if v, ok := f["basePath"]; ok {
		c.BasePath = asString(v)
	}
	c.AuthRef = asString(f["authRef"])
	if b, ok := asBool(f["readOnly"]); ok {
		c.ReadOnly = b
	}
	return c
}

// fromPositional reads the legacy [name, kind, host, port, basePath, readOnly]
// encoding. Short entries get an empty base path and are read-only.
func fromPositional(v []any) Connection {
	at := func(i int) any {
		if i < len(v) {
			return v[i]
		}
		return nil
	}

	c := New(asString(at(0)))
	if k, err := ParseKind(asString(at(1))); err == nil {
		c.Kind = k
	}
	if h := asString(at(2)); h != "" {
		c.Host = h
	}
	c.Port = asPort(at(3))
	c.BasePath = asString(at(4))
	c.ReadOnly = true
	if b, ok := asBool(at(5)); ok {
		c.ReadOnly = b
	}
	return c
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func asPort(v any) *int {
	switch t := v.(type) {
	case float64:
		return IntPtr(int(t))
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return IntPtr(n)
		}
	}
	return nil
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	case float64:
		return t != 0, true
	}
	return false, false
}
