// Package capability defines the allow-list that gates which modules, calls,
// and syntax constructs a query snippet may use. The whitelist is built once
// at startup and is immutable afterwards; a snippet's verdict is a pure
// function of the snippet and the whitelist version.
package capability

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/syntrobox/ociq/internal/querylang"
)

// Receiver classifies what a call pattern applies to.
type Receiver string

const (
	// ReceiverModule matches calls rooted in an allowed module reference,
	// e.g. `oci.identity.IdentityClient(config)`.
	ReceiverModule Receiver = "module"
	// ReceiverObject matches method calls on an already-bound value,
	// e.g. `client.list_compartments(...)`.
	ReceiverObject Receiver = "object"
	// ReceiverBuiltin matches calls to bare builtin functions, e.g. `len(x)`.
	ReceiverBuiltin Receiver = "builtin"
)

// CallPattern permits calls whose receiver kind matches Receiver and whose
// member name matches the Member glob (path.Match syntax: `list_*`, `*`).
type CallPattern struct {
	Receiver Receiver `json:"receiver" yaml:"receiver"`
	Member   string   `json:"member" yaml:"member"`
}

// Matches reports whether the pattern admits the given receiver/member pair.
func (p CallPattern) Matches(recv Receiver, member string) bool {
	if p.Receiver != recv {
		return false
	}
	ok, err := path.Match(p.Member, member)
	return err == nil && ok
}

// Whitelist is the process-wide capability allow-list. Deny-by-default:
// anything not explicitly listed here is rejected by the validator.
type Whitelist struct {
	version        string
	allowedModules map[string]bool
	allowedCalls   []CallPattern
	forbiddenKinds map[querylang.NodeKind]bool
	builtins       map[string]bool
}

// Config is the raw, deserializable form of a whitelist.
type Config struct {
	Version        string        `json:"version,omitempty" yaml:"version,omitempty"`
	AllowedModules []string      `json:"allowed_modules" yaml:"allowed_modules"`
	AllowedCalls   []CallPattern `json:"allowed_calls" yaml:"allowed_calls"`
	ForbiddenKinds []string      `json:"forbidden_kinds,omitempty" yaml:"forbidden_kinds,omitempty"`
	Builtins       []string      `json:"builtins,omitempty" yaml:"builtins,omitempty"`
}

// Default returns the whitelist used when no capability config is provided:
// the `oci` module, client construction, read and lifecycle operations, and
// the safe builtins.
func Default() *Whitelist {
	wl, err := New(Config{
		Version:        "default-v1",
		AllowedModules: []string{"oci"},
		AllowedCalls: []CallPattern{
			{Receiver: ReceiverModule, Member: "*"}, // client constructors
			{Receiver: ReceiverObject, Member: "list_*"},
			{Receiver: ReceiverObject, Member: "get_*"},
			{Receiver: ReceiverObject, Member: "create_*"},
			{Receiver: ReceiverObject, Member: "update_*"},
			{Receiver: ReceiverObject, Member: "instance_action"},
			{Receiver: ReceiverBuiltin, Member: "len"},
			{Receiver: ReceiverBuiltin, Member: "str"},
			{Receiver: ReceiverBuiltin, Member: "range"},
			{Receiver: ReceiverBuiltin, Member: "append"},
		},
		Builtins: []string{"len", "str", "range", "append"},
	})
	if err != nil {
		panic(fmt.Sprintf("capability: invalid default whitelist: %v", err))
	}
	return wl
}

// New builds an immutable Whitelist from config. Patterns are validated
// eagerly so a malformed glob fails at startup, not per-request.
func New(cfg Config) (*Whitelist, error) {
	wl := &Whitelist{
		version:        cfg.Version,
		allowedModules: make(map[string]bool, len(cfg.AllowedModules)),
		forbiddenKinds: make(map[querylang.NodeKind]bool, len(cfg.ForbiddenKinds)),
		builtins:       make(map[string]bool, len(cfg.Builtins)),
	}
	if wl.version == "" {
		wl.version = "unversioned"
	}
	for _, m := range cfg.AllowedModules {
		if m == "" {
			return nil, fmt.Errorf("empty module name in allowed_modules")
		}
		wl.allowedModules[m] = true
	}
	for _, p := range cfg.AllowedCalls {
		switch p.Receiver {
		case ReceiverModule, ReceiverObject, ReceiverBuiltin:
		default:
			return nil, fmt.Errorf("unknown call pattern receiver %q", p.Receiver)
		}
		if _, err := path.Match(p.Member, "probe"); err != nil {
			return nil, fmt.Errorf("invalid call pattern member %q: %w", p.Member, err)
		}
		wl.allowedCalls = append(wl.allowedCalls, p)
	}
	for _, k := range cfg.ForbiddenKinds {
		wl.forbiddenKinds[querylang.NodeKind(k)] = true
	}
	for _, b := range cfg.Builtins {
		wl.builtins[b] = true
	}
	return wl, nil
}

// Version identifies this whitelist configuration.
func (w *Whitelist) Version() string { return w.version }

// ModuleAllowed reports whether the module may be imported and referenced.
func (w *Whitelist) ModuleAllowed(name string) bool {
	return w.allowedModules[name]
}

// CallAllowed reports whether a call with the given receiver kind and member
// name matches any allowed pattern.
func (w *Whitelist) CallAllowed(recv Receiver, member string) bool {
	for _, p := range w.allowedCalls {
		if p.Matches(recv, member) {
			return true
		}
	}
	return false
}

// KindForbidden reports whether the syntax node kind is forbidden outright.
func (w *Whitelist) KindForbidden(kind querylang.NodeKind) bool {
	return w.forbiddenKinds[kind]
}

// BuiltinAllowed reports whether the bare name is a permitted builtin.
func (w *Whitelist) BuiltinAllowed(name string) bool {
	return w.builtins[name]
}

// Schema is the read-only description returned by describe_capabilities.
type Schema struct {
	Version        string        `json:"version"`
	AllowedModules []string      `json:"allowed_modules"`
	AllowedCalls   []CallPattern `json:"allowed_calls"`
	ForbiddenKinds []string      `json:"forbidden_kinds,omitempty"`
	Builtins       []string      `json:"builtins"`
}

// Describe returns the whitelist as a stable, sorted schema so callers can
// construct admissible snippets.
func (w *Whitelist) Describe() Schema {
	s := Schema{
		Version:      w.version,
		AllowedCalls: append([]CallPattern(nil), w.allowedCalls...),
	}
	for m := range w.allowedModules {
		s.AllowedModules = append(s.AllowedModules, m)
	}
	for k := range w.forbiddenKinds {
		s.ForbiddenKinds = append(s.ForbiddenKinds, string(k))
	}
	for b := range w.builtins {
		s.Builtins = append(s.Builtins, b)
	}
	sort.Strings(s.AllowedModules)
	sort.Strings(s.ForbiddenKinds)
	sort.Strings(s.Builtins)
	sort.Slice(s.AllowedCalls, func(i, j int) bool {
		a, b := s.AllowedCalls[i], s.AllowedCalls[j]
		if a.Receiver != b.Receiver {
			return a.Receiver < b.Receiver
		}
		return a.Member < b.Member
	})
	return s
}

// String summarizes the whitelist for logs.
func (w *Whitelist) String() string {
	s := w.Describe()
	return fmt.Sprintf("whitelist %s: modules=[%s] calls=%d builtins=[%s]",
		s.Version, strings.Join(s.AllowedModules, ","), len(s.AllowedCalls), strings.Join(s.Builtins, ","))
}
