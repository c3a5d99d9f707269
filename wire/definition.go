// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"regexp"
	"sort"
	"sync"
)

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
var argNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// argument is one named, typed, ordered field of a MessageDefinition.
type argument struct {
	name string
	kind Kind
}

// MessageDefinition is an immutable descriptor for one message type: a
// stable id assigned in registration order, a name, and its arguments
// sorted by name so wire order never depends on declaration order.
//
// Two process-wide registries (by name and by id) are append-only: once
// a definition is registered it is never mutated or removed. A client
// and a server that register different sets of definitions interoperate
// only for the prefix of ids that match on both sides -- this is by
// design, not a bug, and must be documented by callers that rely on it.
type MessageDefinition struct {
	id        uint32
	name      string
	arguments []argument // sorted by name

	fixedSize int // bytes occupied by the fixed part, excluding the 4-byte id
}

// ID returns this definition's wire id.
func (d *MessageDefinition) ID() uint32 { return d.id }

// Name returns this definition's name.
func (d *MessageDefinition) Name() string { return d.name }

// Arguments returns the sorted (name, kind) pairs for this definition.
func (d *MessageDefinition) Arguments() []struct {
	Name string
	Kind Kind
} {
	out := make([]struct {
		Name string
		Kind Kind
	}, len(d.arguments))
	for i, a := range d.arguments {
		out[i] = struct {
			Name string
			Kind Kind
		}{a.name, a.kind}
	}
	return out
}

func (d *MessageDefinition) argumentKind(name string) (Kind, bool) {
	for _, a := range d.arguments {
		if a.name == name {
			return a.kind, true
		}
	}
	return 0, false
}

// Registry is a process-wide, append-only table of MessageDefinitions.
// The default Registry is what Register/Lookup/LookupByID operate on;
// tests may construct their own Registry to avoid cross-test pollution
// of the global one.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*MessageDefinition
	byID   map[uint32]*MessageDefinition
	nextID uint32
}

// NewRegistry returns an empty, writable Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*MessageDefinition),
		byID:   make(map[uint32]*MessageDefinition),
	}
}

// DefaultRegistry is the process-wide registry used by the package-level
// Register/Lookup/LookupByID helpers.
var DefaultRegistry = NewRegistry()

// Register defines a new message and assigns it the next id in
// registration order (ids start at 1). Arguments are supplied as a
// map from argument name to Kind; they are stored sorted by name.
//
// Register fails with a *ConfigError if name or any argument name
// fails its regex, or if name is already registered.
func (r *Registry) Register(name string, args map[string]Kind) (*MessageDefinition, error) {
	if !nameRe.MatchString(name) {
		return nil, newConfigErrorf("invalid message name %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return nil, newConfigErrorf("message %q already defined", name)
	}

	names := make([]string, 0, len(args))
	for argName := range args {
		if !argNameRe.MatchString(argName) {
			return nil, newConfigErrorf("invalid argument name %q in message %q", argName, name)
		}
		names = append(names, argName)
	}
	sort.Strings(names)

	def := &MessageDefinition{
		name:      name,
		arguments: make([]argument, len(names)),
	}
	fixed := 0
	for i, argName := range names {
		kind := args[argName]
		def.arguments[i] = argument{name: argName, kind: kind}
		fixed += kind.fixedSize()
	}
	def.fixedSize = fixed

	r.nextID++
	def.id = r.nextID

	r.byName[name] = def
	r.byID[def.id] = def
	return def, nil
}

// Lookup returns the definition registered under name, if any.
func (r *Registry) Lookup(name string) (*MessageDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// LookupByID returns the definition registered under id, if any.
func (r *Registry) LookupByID(id uint32) (*MessageDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// Register defines a message on the DefaultRegistry. See Registry.Register.
func Register(name string, args map[string]Kind) (*MessageDefinition, error) {
	return DefaultRegistry.Register(name, args)
}

// Lookup looks up a message by name on the DefaultRegistry.
func Lookup(name string) (*MessageDefinition, bool) { return DefaultRegistry.Lookup(name) }

// LookupByID looks up a message by id on the DefaultRegistry.
func LookupByID(id uint32) (*MessageDefinition, bool) { return DefaultRegistry.LookupByID(id) }

// rawDefinition is a deferred Register() call: a name plus its argument
// kinds, not yet assigned an id.
type rawDefinition struct {
	name string
	args map[string]Kind
}

// DefinitionList defers message registration so that a whole batch of
// definitions can be assembled -- in any convenient order -- before ids
// are assigned. Calling InstantiateAll registers them against a Registry
// in the order they were added to the list, which is what actually
// determines their ids; see MessageDefinition's id-ordering invariant.
//
// DefinitionList exists so that reserved (protocol) messages and
// application messages can be declared from different packages yet
// still be registered in a single deterministic pass.
type DefinitionList struct {
	order []string
	defs  map[string]map[string]Kind
}

// NewDefinitionList returns an empty DefinitionList.
func NewDefinitionList() *DefinitionList {
	return &DefinitionList{defs: make(map[string]map[string]Kind)}
}

// Add appends a pending definition. It fails if name was already added
// to this list.
func (l *DefinitionList) Add(name string, args map[string]Kind) error {
	if _, exists := l.defs[name]; exists {
		return newConfigErrorf("duplicate definition %q", name)
	}
	l.defs[name] = args
	l.order = append(l.order, name)
	return nil
}

// InstantiateAll registers every pending definition against reg, in the
// order Add was called, and clears the list. Both peers of a session
// must call InstantiateAll with identical DefinitionLists, in identical
// order, for ids to agree.
func (l *DefinitionList) InstantiateAll(reg *Registry) error {
	for _, name := range l.order {
		if _, err := reg.Register(name, l.defs[name]); err != nil {
			return err
		}
	}
	l.order = nil
	l.defs = make(map[string]map[string]Kind)
	return nil
}
