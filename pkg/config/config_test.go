package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privacyscope/privacyscope/pkg/netintercept"
	"github.com/privacyscope/privacyscope/pkg/scan"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"url only", Config{TargetURL: "https://example.com"}, false},
		{"list only", Config{ListFile: "urls.txt"}, false},
		{"neither", Config{}, true},
		{"both target forms", Config{TargetURL: "x", ListFile: "y"}, true},
		{"both with strict profile", Config{TargetURL: "x", Both: true, Profile: "strict"}, true},
		{"both with baseline scan", Config{TargetURL: "x", Both: true}, false},
		{"bad profile", Config{TargetURL: "x", Profile: "audit"}, true},
		{"strict config on baseline", Config{TargetURL: "x", Profile: "baseline", StrictConfigFile: "p.yaml"}, true},
		{"strict config with both", Config{TargetURL: "x", Both: true, StrictConfigFile: "p.yaml"}, false},
		{"bad metrics port", Config{TargetURL: "x", MetricsPort: 99999}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEffectiveProfile(t *testing.T) {
	t.Parallel()

	assert.Equal(t, scan.ProfileBaseline, (&Config{}).EffectiveProfile())
	assert.Equal(t, scan.ProfileStrict, (&Config{Profile: "strict"}).EffectiveProfile())
	assert.Equal(t, scan.ProfileStrict, (&Config{StrictConfigFile: "p.yaml"}).EffectiveProfile(),
		"a strict policy file implies the strict profile")
}

func TestLoadStrictConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("empty path is the zero policy", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadStrictConfig("")
		require.NoError(t, err)
		assert.Equal(t, netintercept.StrictConfig{}, cfg)
	})

	t.Run("valid yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(dir, "strict.yaml")
		data := "block_third_party: true\nallowlist_domains:\n  - cdn.example\n  - fonts.example\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

		cfg, err := LoadStrictConfig(path)
		require.NoError(t, err)
		assert.True(t, cfg.BlockThirdParty)
		assert.Equal(t, []string{"cdn.example", "fonts.example"}, cfg.AllowlistDomains)
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(dir, "typo.yaml")
		require.NoError(t, os.WriteFile(path, []byte("block_thirdparty: true\n"), 0o644))
		_, err := LoadStrictConfig(path)
		assert.Error(t, err, "a misspelled policy key must not silently disable blocking")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadStrictConfig(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}
