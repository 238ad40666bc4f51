// Package dialect defines the SQL dialect capability used by the renderer.
//
// A dialect differs from the others only in how it spells identifiers and the
// relative time window "now minus N days". Concrete dialects live in
// pkg/dialects/*/ and register themselves from init(); import
// pkg/dialects/all to get every supported dialect.
package dialect

import (
	"strings"
)

// WindowStyle classifies how a dialect writes a relative time window.
type WindowStyle int

const (
	// WindowInterval subtracts an interval literal from the current time.
	WindowInterval WindowStyle = iota
	// WindowFunction calls a timestamp arithmetic function.
	WindowFunction
)

// String returns the string representation of WindowStyle.
func (s WindowStyle) String() string {
	switch s {
	case WindowInterval:
		return "interval"
	case WindowFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Dialect renders the dialect-specific parts of a decision query.
type Dialect interface {
	// Name returns the canonical dialect tag.
	Name() string
	// Aliases returns alternative tags accepted by Lookup.
	Aliases() []string
	// Style reports how WindowPredicate is written.
	Style() WindowStyle
	// WindowPredicate compares column against "now minus days days".
	WindowPredicate(column string, days int) string
	// QuoteIdentifier quotes a single identifier part.
	QuoteIdentifier(name string) string
	// IsReservedWord reports whether word must be quoted to be used as a name.
	IsReservedWord(word string) bool
}

// IdentifierConfig describes identifier quoting.
type IdentifierConfig struct {
	Quote    string // opening quote character
	QuoteEnd string // closing quote character
	Escape   string // replacement for QuoteEnd inside a quoted name
}

// Config is pure dialect data shared by every Dialect implementation.
type Config struct {
	Name          string
	Aliases       []string
	Window        WindowStyle
	Identifiers   IdentifierConfig
	ReservedWords []string
}

// Base implements the data-driven part of Dialect.
// Concrete dialects embed *Base and add WindowPredicate.
type Base struct {
	cfg      *Config
	reserved map[string]struct{}
}

// NewBase creates a Base from cfg.
func NewBase(cfg *Config) *Base {
	b := &Base{
		cfg:      cfg,
		reserved: make(map[string]struct{}, len(cfg.ReservedWords)),
	}
	for _, w := range cfg.ReservedWords {
		b.reserved[strings.ToLower(w)] = struct{}{}
	}
	return b
}

// Config returns the dialect configuration.
func (b *Base) Config() *Config { return b.cfg }

// Name returns the canonical dialect tag.
func (b *Base) Name() string { return b.cfg.Name }

// Aliases returns alternative tags.
func (b *Base) Aliases() []string { return append([]string(nil), b.cfg.Aliases...) }

// Style returns the window style.
func (b *Base) Style() WindowStyle { return b.cfg.Window }

// IsReservedWord checks if a word is reserved (case-insensitive).
func (b *Base) IsReservedWord(word string) bool {
	_, ok := b.reserved[strings.ToLower(word)]
	return ok
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (b *Base) QuoteIdentifier(name string) string {
	id := b.cfg.Identifiers
	escaped := strings.ReplaceAll(name, id.QuoteEnd, id.Escape)
	return id.Quote + escaped + id.QuoteEnd
}

// QuoteIdentifierIfNeeded quotes name only when it is reserved or is not a
// plain identifier. Case is left alone so unquoted names keep the dialect's
// own case folding.
func QuoteIdentifierIfNeeded(d Dialect, name string) string {
	if d.IsReservedWord(name) || !IsPlainIdentifier(name) {
		return d.QuoteIdentifier(name)
	}
	return name
}

// QuoteQualified applies QuoteIdentifierIfNeeded to every dot-separated part.
func QuoteQualified(d Dialect, name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = QuoteIdentifierIfNeeded(d, p)
	}
	return strings.Join(parts, ".")
}

// IsPlainIdentifier reports whether name is [A-Za-z_][A-Za-z0-9_]*.
func IsPlainIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// CommonReservedWords are reserved in every supported dialect.
var CommonReservedWords = []string{
	"all", "and", "as", "asc", "between", "by", "case", "cast", "create",
	"cross", "current_date", "current_time", "current_timestamp", "default",
	"desc", "distinct", "else", "end", "exists", "false", "from", "full",
	"group", "having", "in", "inner", "interval", "is", "join", "left",
	"like", "limit", "not", "null", "on", "or", "order", "outer", "right",
	"select", "table", "then", "true", "union", "using", "when", "where",
	"with",
}
