package realm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpr_Match(t *testing.T) {
	pred, err := Expr[entry](`Key startsWith "a" && Value < 10`)
	require.NoError(t, err)

	tests := []struct {
		obj  entry
		want bool
	}{
		{entry{Key: "apple", Value: 1}, true},
		{entry{Key: "apple", Value: 10}, false},
		{entry{Key: "banana", Value: 1}, false},
	}
	for _, tt := range tests {
		got, err := pred.Match(&tt.obj)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%+v", tt.obj)
	}

	got, err := pred.Match(nil)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestExpr_CompileErrors(t *testing.T) {
	for _, src := range []string{
		"",
		`Value +`,
		`Value + 1`,  // not a bool
		`Missing > 1`, // unknown field
	} {
		_, err := Expr[entry](src)
		assert.True(t, IsValidationError(err), "expression %q", src)
	}
}

func TestWhereAndAll(t *testing.T) {
	even := Where(func(e *entry) bool { return e.Value%2 == 0 })

	ok, err := even.Match(&entry{Value: 2})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = All[entry]().Match(&entry{Value: 3})
	require.NoError(t, err)
	assert.True(t, ok)
}
