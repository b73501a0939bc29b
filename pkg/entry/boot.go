package entry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	alvorierrors "github.com/alvori-dev/alvori/internal/errors"
)

// BootEntry is one item of the boot list.
//
// In JSON it is either a bare name or an object:
//
//	"axios"
//	{"path": "analytics", "server": false}
type BootEntry struct {
	// Path is the registry name of the boot function.
	Path string `json:"path"`

	// Server disables loading on the server when present and false.
	Server *bool `json:"server,omitempty"`

	// Client disables loading on the client when present and false.
	Client *bool `json:"client,omitempty"`

	// Plain is set for entries given as a bare name.
	Plain bool `json:"-"`
}

// Name returns a plain boot entry.
func Name(path string) BootEntry {
	return BootEntry{Path: path, Plain: true}
}

// ShouldLoad reports whether the entry loads on side.
func (b BootEntry) ShouldLoad(side Side) bool {
	if b.Plain {
		return true
	}
	flag := b.Server
	if side == SideClient {
		flag = b.Client
	}
	return flag == nil || *flag
}

// UnmarshalJSON accepts a string or an object.
func (b *BootEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var path string
		if err := json.Unmarshal(data, &path); err != nil {
			return err
		}
		*b = Name(path)
		return nil
	}

	type object BootEntry
	var o object
	if err := json.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("boot entry: %w", err)
	}
	if o.Path == "" {
		return fmt.Errorf("boot entry: missing path")
	}
	*b = BootEntry(o)
	b.Plain = false
	return nil
}

// MarshalJSON writes plain entries back as a string.
func (b BootEntry) MarshalJSON() ([]byte, error) {
	if b.Plain {
		return json.Marshal(b.Path)
	}
	type object BootEntry
	return json.Marshal(object(b))
}

// BootContext is passed to every boot function.
type BootContext struct {
	App    App
	Router Router
	IsSSR  bool

	// Ctx is the rendering context, nil when there is none. Each boot
	// function receives its own copy.
	Ctx *RenderContext
}

// BootFunc is the default export of a boot module.
type BootFunc func(ctx context.Context, bc BootContext) error

// Registry maps boot entry paths to boot functions.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]BootFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]BootFunc)}
}

// Register binds name to fn, replacing any previous binding.
func (r *Registry) Register(name string, fn BootFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (BootFunc, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Entry) bootOne(ctx context.Context, side Side, be BootEntry, base BootContext, rc *RenderContext) (err error) {
	if !be.ShouldLoad(side) {
		return nil
	}

	fn, ok := e.Registry.Lookup(be.Path)
	if !ok {
		err := alvorierrors.New("E131").WithDetail(be.Path)
		e.logger().Warn("boot entry not registered", "entry", be.Path)
		return err
	}

	if side == SideClient && !be.Plain {
		rc = &RenderContext{URL: e.Window.DocumentURI()}
	}
	if rc != nil {
		rc = rc.clone()
		if decoded, derr := decodeURI(rc.URL); derr == nil {
			rc.URL = decoded
		}
	}

	bc := base
	bc.Ctx = rc

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("boot entry %q panicked: %v", be.Path, r)
		}
		if err != nil {
			e.logger().Warn("boot entry failed", "entry", be.Path, "error", err)
		}
	}()
	return fn(ctx, bc)
}

// uriReserved are the characters decodeURI leaves escaped.
const uriReserved = ";/?:@&=+$,#"

// decodeURI decodes percent escapes except those of reserved characters.
func decodeURI(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}

	var out strings.Builder
	out.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			out.WriteByte(c)
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("malformed escape at %d", i)
		}
		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return "", fmt.Errorf("malformed escape at %d", i)
		}
		b := hi<<4 | lo
		if b < utf8.RuneSelf && strings.IndexByte(uriReserved, b) >= 0 {
			out.WriteString(s[i : i+3])
		} else {
			out.WriteByte(b)
		}
		i += 2
	}

	decoded := out.String()
	if !utf8.ValidString(decoded) {
		return "", fmt.Errorf("invalid UTF-8 sequence")
	}
	return decoded, nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
