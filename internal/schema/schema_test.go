package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keyed struct {
	Key   string `stowage:"pk"`
	Value int
}

type unkeyed struct {
	Value int
}

type twoKeys struct {
	A string `stowage:"pk"`
	B string `stowage:"pk"`
}

type numbered struct {
	ID   int64 `stowage:"pk"`
	Name string
}

type custom struct {
	Key string `stowage:"pk"`
}

func (custom) EntityName() string { return "CustomThing" }

type badKey struct {
	Key float64 `stowage:"pk"`
}

func TestRegister_DerivesNameAndKey(t *testing.T) {
	r := NewRegistry()

	e, err := Register[keyed](r)
	require.NoError(t, err)
	assert.Equal(t, "keyed", e.Name)
	assert.Equal(t, 1, e.KeyCount())

	field, err := e.KeyField()
	require.NoError(t, err)
	assert.Equal(t, "Key", field)
}

func TestRegister_Idempotent(t *testing.T) {
	r := NewRegistry()

	e1, err := Register[keyed](r)
	require.NoError(t, err)
	e2, err := Register[keyed](r)
	require.NoError(t, err)

	assert.Same(t, e1, e2)
	assert.Equal(t, []string{"keyed"}, r.Names())
}

func TestRegister_NamedEntity(t *testing.T) {
	r := NewRegistry()

	e, err := Register[custom](r)
	require.NoError(t, err)
	assert.Equal(t, "CustomThing", e.Name)
}

func TestRegister_RejectsNonStruct(t *testing.T) {
	r := NewRegistry()

	_, err := Register[string](r)
	assert.Error(t, err)
}

func TestLookup_Unregistered(t *testing.T) {
	r := NewRegistry()

	_, err := Lookup[keyed](r)
	assert.ErrorIs(t, err, ErrUnregistered)
}

func TestKeyOf(t *testing.T) {
	r := NewRegistry()
	e := MustRegister[keyed](r)

	key, ok, err := e.KeyOf(&keyed{Key: "K1"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "K1", key)
}

func TestKeyOf_NoKey(t *testing.T) {
	r := NewRegistry()
	e := MustRegister[unkeyed](r)

	_, ok, err := e.KeyOf(&unkeyed{Value: 1})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.KeyField()
	assert.ErrorIs(t, err, ErrNoPrimaryKey)
}

func TestKeyOf_TwoKeys(t *testing.T) {
	r := NewRegistry()
	e := MustRegister[twoKeys](r)

	_, _, err := e.KeyOf(&twoKeys{A: "a", B: "b"})
	assert.ErrorIs(t, err, ErrAmbiguousPrimaryKey)
}

func TestKeyOf_IntegerKey(t *testing.T) {
	r := NewRegistry()
	e := MustRegister[numbered](r)

	key, ok, err := e.KeyOf(&numbered{ID: -42})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "-42", key)
}

func TestKeyOf_UnsupportedKind(t *testing.T) {
	r := NewRegistry()
	e := MustRegister[badKey](r)

	_, _, err := e.KeyOf(&badKey{Key: 1.5})
	assert.ErrorIs(t, err, ErrUnsupportedKey)
}

func TestCanonicalKey_NFC(t *testing.T) {
	// "é" precomposed vs. "e" + combining acute accent
	composed, err := CanonicalKey("caf\u00e9")
	require.NoError(t, err)
	decomposed, err := CanonicalKey("cafe\u0301")
	require.NoError(t, err)

	assert.Equal(t, composed, decomposed)
}
