package mcplog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeParams(t *testing.T) {
	tests := []struct {
		name     string
		input    map[string]any
		wantKeys []string
		wantSkip []string
	}{
		{name: "nil map returns empty", input: nil},
		{
			name:     "short string passes through",
			input:    map[string]any{"name": "Calculator"},
			wantKeys: []string{"name"},
		},
		{
			name:     "long string replaced with _len key",
			input:    map[string]any{"path": strings.Repeat("a", MaxParamLen+1)},
			wantKeys: []string{"path_len"},
			wantSkip: []string{"path"},
		},
		{
			name:     "bool and nil pass through",
			input:    map[string]any{"refresh": true, "extra": nil},
			wantKeys: []string{"refresh", "extra"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := SanitizeParams(tc.input)
			assert.Len(t, out, len(tc.wantKeys))
			for _, k := range tc.wantKeys {
				assert.Contains(t, out, k)
			}
			for _, k := range tc.wantSkip {
				assert.NotContains(t, out, k)
			}
		})
	}
}

func TestResponseBytes(t *testing.T) {
	assert.Zero(t, ResponseBytes(nil))
	assert.Equal(t, 5, ResponseBytes(mcp.NewToolResultText("hello")))
}

func TestLogger_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	msg := "module not found"
	require.NoError(t, l.Write(Entry{Ts: "t1", Tool: "list_modules", DurationMs: 3}))
	require.NoError(t, l.Write(Entry{Ts: "t2", Tool: "get_module_definition", Module: "Maps", IsError: true, Error: &msg}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "get_module_definition", second["tool"])
	assert.Equal(t, "Maps", second["module"])
	assert.Equal(t, true, second["is_error"])
	assert.Equal(t, msg, second["error"])

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.NotContains(t, first, "module")
	assert.Nil(t, first["error"])
}

func TestOpen_EmptyPathDisables(t *testing.T) {
	l, err := Open("")
	require.NoError(t, err)
	assert.Nil(t, l)
	assert.NoError(t, l.Write(Entry{Tool: "list_modules"}))
	assert.NoError(t, l.Close())
}

func TestOpen_AppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mcp.jsonl")

	for i := 0; i < 2; i++ {
		l, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, l.Write(Entry{Tool: "list_modules"}))
		require.NoError(t, l.Close())
	}

	assert.Equal(t, 2, countLines(t, path))
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.jsonl")
	l, err := Open(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Write(Entry{Tool: "generate_stub", Params: map[string]any{"name": "Calculator"}})
		}()
	}
	wg.Wait()
	require.NoError(t, l.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	sc := bufio.NewScanner(f)
	n := 0
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e), "line %d is not valid JSON", n)
		n++
	}
	assert.Equal(t, 20, n)
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Count(string(data), "\n")
}
