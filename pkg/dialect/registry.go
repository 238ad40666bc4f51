package dialect

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Dialect registry, keyed by lower-cased tag and alias.
var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]Dialect)
	canonical  = make(map[string]Dialect)
)

// UnsupportedDialectError is returned when a tag names no registered dialect.
type UnsupportedDialectError struct {
	Dialect   string
	Supported []string
}

func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("unsupported dialect %q (supported: %s)", e.Dialect, strings.Join(e.Supported, ", "))
}

// Register registers a dialect under its name and aliases.
// Called by dialect implementations in their init() functions.
func Register(d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	canonical[strings.ToLower(d.Name())] = d
	dialects[strings.ToLower(d.Name())] = d
	for _, alias := range d.Aliases() {
		dialects[strings.ToLower(alias)] = d
	}
}

// Get returns a dialect by name or alias.
func Get(name string) (Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// Lookup is Get with an *UnsupportedDialectError for unknown tags.
func Lookup(name string) (Dialect, error) {
	if d, ok := Get(name); ok {
		return d, nil
	}
	return nil, &UnsupportedDialectError{Dialect: name, Supported: List()}
}

// List returns all registered dialect names (sorted), without aliases.
func List() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(canonical))
	for name := range canonical {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered dialects sorted by name.
func All() []Dialect {
	names := List()
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	out := make([]Dialect, 0, len(names))
	for _, name := range names {
		out = append(out, canonical[name])
	}
	return out
}
