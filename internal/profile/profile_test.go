package profile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileValidate(t *testing.T) {
	t.Run("UnknownModeDefaultsToDev", func(t *testing.T) {
		p := &Profile{Mode: "staging"}
		require.NoError(t, p.Validate())
		assert.Equal(t, "dev", p.Mode)
		assert.True(t, p.IsDev())
	})

	t.Run("UnsupportedDriverRejected", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "mysql"}
		assert.Error(t, p.Validate())
	})

	t.Run("EmptyDriverAllowed", func(t *testing.T) {
		p := &Profile{Mode: "dev"}
		assert.NoError(t, p.Validate())
	})

	t.Run("SqliteDefaultsDSNFromDataDir", func(t *testing.T) {
		dir := t.TempDir()
		p := &Profile{Mode: "prod", Driver: "sqlite", Data: dir}
		require.NoError(t, p.Validate())
		assert.Equal(t, filepath.Join(dir, "kiezfinder_prod.db"), p.DSN)
	})

	t.Run("SqliteWithoutDataOrDSNRejected", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "sqlite"}
		assert.Error(t, p.Validate())
	})
}

func TestProfileFromEnv(t *testing.T) {
	t.Setenv("KIEZFINDER_WEATHER_API_KEY", "wkey")
	t.Setenv("KIEZFINDER_WEATHER_CITY", "Hamburg")
	t.Setenv("KIEZFINDER_OPENAI_API_KEY", "okey")
	t.Setenv("KIEZFINDER_DIALOG_PATH", "/etc/kiezfinder/dialogues.yaml")

	p := &Profile{DialogPath: "data/dialogues.yaml"}
	p.FromEnv()

	assert.Equal(t, "wkey", p.WeatherAPIKey)
	assert.Equal(t, "Hamburg", p.WeatherCity)
	assert.Equal(t, "https://api.weatherapi.com/v1", p.WeatherBaseURL)
	assert.Equal(t, "/etc/kiezfinder/dialogues.yaml", p.DialogPath)
	assert.Equal(t, "gpt-4o-mini", p.OpenAIModel)
	assert.True(t, p.IsGenerativeEnabled())
}

func TestIsGenerativeEnabled(t *testing.T) {
	assert.False(t, (&Profile{}).IsGenerativeEnabled())
	assert.True(t, (&Profile{OpenAIAPIKey: "k"}).IsGenerativeEnabled())
}
