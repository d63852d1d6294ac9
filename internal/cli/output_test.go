package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stowage/internal/realm"
)

func TestOutputFormatter_JSON(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}

		require.NoError(t, f.Success(deleteResult{Deleted: 3}))
		assert.JSONEq(t, `{"status":"ok","data":{"deleted":3}}`, buf.String())
	})

	t.Run("error", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}

		require.NoError(t, f.Error(ErrCodeOpen, "database is locked", map[string]string{"path": "stowage.db"}))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.Nil(t, resp.Data)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeOpen, resp.Error.Code)
		assert.Equal(t, "database is locked", resp.Error.Message)
		assert.Equal(t, map[string]any{"path": "stowage.db"}, resp.Error.Details)
	})
}

func TestOutputFormatter_Text(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		write   func(f *OutputFormatter) error
		want    string
	}{
		{
			name:  "success",
			write: func(f *OutputFormatter) error { return f.Success("3 entries") },
			want:  "3 entries\n",
		},
		{
			name:  "error",
			write: func(f *OutputFormatter) error { return f.Error(ErrCodeNotFound, `no entry "a"`, "ignored") },
			want:  "Error [E005]: no entry \"a\"\n",
		},
		{
			name:    "error verbose",
			verbose: true,
			write:   func(f *OutputFormatter) error { return f.Error(ErrCodeOpen, "database is locked", "stowage.db") },
			want:    "Error [E004]: database is locked\nDetails: stowage.db\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, tt.write(f))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	for _, verbose := range []bool{true, false} {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf, Verbose: verbose}

		f.VerboseLog("Opening %s", "stowage.db")

		if verbose {
			assert.Equal(t, "Opening stowage.db\n", buf.String())
		} else {
			assert.Empty(t, buf.String())
		}
	}
}

func TestOutputFormatter_Render(t *testing.T) {
	data := map[string]int{"deleted": 2}
	text := func(w io.Writer) { fmt.Fprintln(w, "deleted 2") }

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf}
		require.NoError(t, f.Render(data, text))
		assert.Equal(t, "deleted 2\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, f.Render(data, text))
		assert.JSONEq(t, `{"status":"ok","data":{"deleted":2}}`, buf.String())
	})
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	exitErr := &ExitError{Code: ExitFailure, ErrCode: ErrCodeNotFound, Message: `no entry "a"`}
	err := f.Fail(exitErr)
	assert.Same(t, exitErr, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, `no entry "a"`, resp.Error.Message)
}

func TestOutputFormatter_FailPlainError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	_ = f.Fail(assert.AnError)
	assert.Contains(t, buf.String(), "Error [E001]")
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	diag := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: true}

	f.VerboseLog("%d entries", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "3 entries\n", diag.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "put", assert.AnError)))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "bad"))))
}

func TestRealmErrCode(t *testing.T) {
	tests := []struct {
		code string
		err  error
	}{
		{ErrCodeValidation, &realm.Error{Code: realm.ErrCodeValidation, Message: "nil object"}},
		{ErrCodeCollision, &realm.Error{Code: realm.ErrCodeCollision, Message: "2 matches"}},
		{ErrCodeResolution, &realm.Error{Code: realm.ErrCodeResolution, Message: "deleted"}},
		{ErrCodeTransaction, &realm.Error{Code: realm.ErrCodeTransaction, Message: "commit"}},
		{ErrCodeDuplicateKey, &realm.Error{Code: realm.ErrCodeDuplicateKey, Message: "key a"}},
		{ErrCodeGeneric, assert.AnError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			exitErr := wrapRealmError("op", tt.err)
			assert.Equal(t, tt.code, exitErr.ErrCode)
			assert.Equal(t, ExitFailure, exitErr.Code)
			assert.ErrorIs(t, exitErr, tt.err)
		})
	}
}
