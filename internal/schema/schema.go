// Package schema keeps the registry of persisted entity types.
//
// An entity is a Go struct type registered once at startup. Its primary key,
// if any, is the exported field tagged `stowage:"pk"`:
//
//	type Entry struct {
//	    Key   string `json:"key" stowage:"pk"`
//	    Value string `json:"value"`
//	}
//
// Key-based operations require exactly one tagged field. String keys are
// NFC-normalized so canonically equivalent spellings address the same record.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// TagName is the struct tag consulted for key declarations.
const TagName = "stowage"

var (
	// ErrUnregistered is returned for types never passed to Register.
	ErrUnregistered = errors.New("schema: type not registered")

	// ErrNoPrimaryKey is returned by key operations on types without a key field.
	ErrNoPrimaryKey = errors.New("schema: type declares no primary key")

	// ErrAmbiguousPrimaryKey is returned when more than one field is tagged as key.
	ErrAmbiguousPrimaryKey = errors.New("schema: type declares more than one primary key")

	// ErrUnsupportedKey is returned for key fields that are neither strings nor integers.
	ErrUnsupportedKey = errors.New("schema: unsupported primary key kind")
)

// Named lets an entity choose its stored type name.
// Without it the Go type name is used.
type Named interface {
	EntityName() string
}

// Entity describes one registered type.
type Entity struct {
	Name string
	Type reflect.Type

	keys []int // field indexes tagged as primary key
}

// KeyCount returns how many fields declare the primary key.
func (e *Entity) KeyCount() int {
	return len(e.keys)
}

// KeyField returns the name of the primary key field.
func (e *Entity) KeyField() (string, error) {
	idx, err := e.keyIndex()
	if err != nil {
		return "", err
	}
	return e.Type.Field(idx).Name, nil
}

func (e *Entity) keyIndex() (int, error) {
	switch len(e.keys) {
	case 0:
		return 0, fmt.Errorf("%s: %w", e.Name, ErrNoPrimaryKey)
	case 1:
		return e.keys[0], nil
	default:
		return 0, fmt.Errorf("%s: %w", e.Name, ErrAmbiguousPrimaryKey)
	}
}

// KeyOf extracts the canonical primary key from obj, a pointer to the entity type.
// Types without a key return ok=false and no error; types with more than one
// declared key return ErrAmbiguousPrimaryKey.
func (e *Entity) KeyOf(obj any) (key string, ok bool, err error) {
	if len(e.keys) == 0 {
		return "", false, nil
	}
	idx, err := e.keyIndex()
	if err != nil {
		return "", false, err
	}

	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", false, fmt.Errorf("%s: nil object", e.Name)
		}
		v = v.Elem()
	}
	if v.Type() != e.Type {
		return "", false, fmt.Errorf("%s: got %s", e.Name, v.Type())
	}

	key, err = CanonicalKey(v.Field(idx).Interface())
	if err != nil {
		return "", false, fmt.Errorf("%s.%s: %w", e.Name, e.Type.Field(idx).Name, err)
	}
	return key, true, nil
}

// CanonicalKey renders a key value as stored text.
// Strings are NFC-normalized; integers are rendered in base 10.
func CanonicalKey(v any) (string, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return norm.NFC.String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedKey, rv.Kind())
	}
}

// Registry maps Go types to entities.
// Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*Entity
	byName map[string]*Entity
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*Entity),
		byName: make(map[string]*Entity),
	}
}

// Register adds T to the registry. Registering the same type twice returns
// the existing entity. T must be a struct type.
func Register[T any](r *Registry) (*Entity, error) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: register %s: entity must be a struct", typ)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byType[typ]; ok {
		return e, nil
	}

	name := typ.Name()
	if n, ok := any(new(T)).(Named); ok {
		name = n.EntityName()
	}
	if name == "" {
		return nil, fmt.Errorf("schema: register %s: entity needs a name", typ)
	}
	if other, ok := r.byName[name]; ok {
		return nil, fmt.Errorf("schema: register %s: name %q already used by %s", typ, name, other.Type)
	}

	e := &Entity{Name: name, Type: typ}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if f.Tag.Get(TagName) == "pk" && f.IsExported() {
			e.keys = append(e.keys, i)
		}
	}

	r.byType[typ] = e
	r.byName[name] = e
	return e, nil
}

// MustRegister is Register for package-level setup; it panics on error.
func MustRegister[T any](r *Registry) *Entity {
	e, err := Register[T](r)
	if err != nil {
		panic(err)
	}
	return e
}

// Lookup returns the entity for T.
func Lookup[T any](r *Registry) (*Entity, error) {
	typ := reflect.TypeFor[T]()

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byType[typ]
	if !ok {
		return nil, fmt.Errorf("%s: %w", typ, ErrUnregistered)
	}
	return e, nil
}

// Names returns every registered entity name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
