package selfref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		expected string
	}{
		{"single key", []Segment{Key("service")}, "service"},
		{"nested keys", []Segment{Key("provider"), Key("stage")}, "provider.stage"},
		{"index first", []Segment{Slot(0), Key("a")}, "[0].a"},
		{"index after key", []Segment{Key("events"), Slot(2), Key("http")}, "events[2].http"},
		{"dotted key", []Segment{Key("custom"), Key("my.key")}, `custom["my.key"]`},
		{"empty key", []Segment{Key("custom"), Key("")}, `custom[""]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Build(tt.segments))
		})
	}
}

func TestParsePath_RoundTrip(t *testing.T) {
	paths := []string{
		"service",
		"provider.stage",
		"[0].a",
		"functions.consumer.events[1].activemq",
		`custom["my.key"].value`,
		`custom["a]b"]`,
		`custom["x\"]y"]`,
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			segments, err := ParsePath(path)
			require.NoError(t, err)
			assert.Equal(t, path, Build(segments))
		})
	}
}

func TestBuild_QuotedKeyRoundTrip(t *testing.T) {
	for _, name := range []string{`x"]y`, `"]`, `a\`, `\"]`, `[0]`} {
		t.Run(name, func(t *testing.T) {
			path := Build([]Segment{Key("custom"), Key(name), Key("v")})
			segments, err := ParsePath(path)
			require.NoError(t, err)
			assert.Equal(t, []Segment{Key("custom"), Key(name), Key("v")}, segments)
		})
	}
}

func TestParsePath_Errors(t *testing.T) {
	for _, path := range []string{"a[", "a[x]", "a[-1]", ".a", "a.", `a["b`, `a["b\"]`, `a["b"x]`} {
		t.Run(path, func(t *testing.T) {
			_, err := ParsePath(path)
			assert.Error(t, err)
		})
	}
}

func TestGet(t *testing.T) {
	root := map[string]any{
		"provider":  map[string]any{"stage": "prod"},
		"functions": []any{map[string]any{"name": "consumer"}},
	}

	v, ok := Get(root, "provider.stage")
	assert.True(t, ok)
	assert.Equal(t, "prod", v)

	v, ok = Get(root, "functions[0].name")
	assert.True(t, ok)
	assert.Equal(t, "consumer", v)

	_, ok = Get(root, "provider.region")
	assert.False(t, ok)

	_, ok = Get(root, "functions[3]")
	assert.False(t, ok)

	v, ok = Get(root, "")
	assert.True(t, ok)
	assert.Equal(t, root, v)
}

func TestSet(t *testing.T) {
	root := map[string]any{
		"provider": map[string]any{"stage": "dev"},
		"list":     []any{"a", "b"},
	}

	require.NoError(t, Set(root, "provider.stage", "prod"))
	require.NoError(t, Set(root, "list[1]", "c"))
	require.NoError(t, Set(root, "provider.region", "eu-west-1"))

	assert.Equal(t, "prod", root["provider"].(map[string]any)["stage"])
	assert.Equal(t, "eu-west-1", root["provider"].(map[string]any)["region"])
	assert.Equal(t, []any{"a", "c"}, root["list"])

	assert.ErrorIs(t, Set(root, "", "x"), ErrRootPath)
	assert.Error(t, Set(root, "list[5]", "x"))
	assert.Error(t, Set(root, "missing.key", "x"))
}
