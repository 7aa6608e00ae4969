package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "file", cfg.Cache.Type)
	assert.Empty(t, cfg.Cache.Dir)
	assert.False(t, cfg.Observe.Enabled)
}

func TestLoad_Memory(t *testing.T) {
	t.Setenv("PDND_CACHE_TYPE", "memory")
	t.Setenv("PDND_OBSERVE_ENABLED", "true")

	cfg, err := Load(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.True(t, cfg.Observe.Enabled)
}

func TestLoad_InvalidCacheType(t *testing.T) {
	t.Setenv("PDND_CACHE_TYPE", "valkey")

	_, err := Load(context.Background())
	assert.ErrorContains(t, err, "invalid cache configuration")
}

func TestProfileFor(t *testing.T) {
	cases := []struct {
		name     string
		expected Profile
	}{
		{
			name:     "production",
			expected: productionProfile,
		},
		{
			name:     "staging",
			expected: stagingProfile,
		},
		{
			name: "collaudo",
			expected: Profile{
				Name:          "collaudo",
				TokenEndpoint: "https://auth.uat.interop.pagopa.it/token.oauth2",
				Audience:      "auth.uat.interop.pagopa.it/client-assertion",
			},
		},
		{
			name: "rendis",
			expected: Profile{
				Name:          "rendis",
				TokenEndpoint: "https://auth.interop.pagopa.it/token.oauth2",
				Audience:      "auth.interop.pagopa.it/client-assertion",
			},
		},
		{
			name:     "",
			expected: productionProfile,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ProfileFor(tc.name))
		})
	}
}

func TestProfile_WithOverrides(t *testing.T) {
	p := ProfileFor("staging").WithOverrides("https://auth.example.test/token", "")

	assert.Equal(t, "https://auth.example.test/token", p.TokenEndpoint)
	assert.Equal(t, stagingProfile.Audience, p.Audience)
	assert.Equal(t, "staging", p.CacheKey())
}
