package profile

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the server
	Addr string
	// Port is the binding port for the server
	Port int
	// Data is the data directory
	Data string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// DSN points to where kiezfinder stores its own data
	DSN string
	// Version is the current version of the server
	Version string

	// Knowledge-base sources
	DialogPath  string // KIEZFINDER_DIALOG_PATH
	FactualPath string // KIEZFINDER_FACTUAL_PATH
	WebsitePath string // KIEZFINDER_WEBSITE_PATH

	// Weather oracle
	WeatherAPIKey  string // KIEZFINDER_WEATHER_API_KEY
	WeatherBaseURL string // KIEZFINDER_WEATHER_BASE_URL (default: https://api.weatherapi.com/v1)
	WeatherCity    string // KIEZFINDER_WEATHER_CITY (default: Berlin)

	// Generative oracle
	OpenAIAPIKey  string // KIEZFINDER_OPENAI_API_KEY
	OpenAIBaseURL string // KIEZFINDER_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	OpenAIModel   string // KIEZFINDER_OPENAI_MODEL (default: gpt-4o-mini)

	// Encyclopedia oracle
	WikipediaBaseURL string // KIEZFINDER_WIKIPEDIA_BASE_URL (default: https://en.wikipedia.org)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsGenerativeEnabled returns true when a completion credential is present.
func (p *Profile) IsGenerativeEnabled() bool {
	return p.OpenAIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from KIEZFINDER_* environment variables.
func (p *Profile) FromEnv() {
	p.DialogPath = getEnvOrDefault("KIEZFINDER_DIALOG_PATH", p.DialogPath)
	p.FactualPath = getEnvOrDefault("KIEZFINDER_FACTUAL_PATH", p.FactualPath)
	p.WebsitePath = getEnvOrDefault("KIEZFINDER_WEBSITE_PATH", p.WebsitePath)

	p.WeatherAPIKey = os.Getenv("KIEZFINDER_WEATHER_API_KEY")
	p.WeatherBaseURL = getEnvOrDefault("KIEZFINDER_WEATHER_BASE_URL", "https://api.weatherapi.com/v1")
	p.WeatherCity = getEnvOrDefault("KIEZFINDER_WEATHER_CITY", "Berlin")

	p.OpenAIAPIKey = os.Getenv("KIEZFINDER_OPENAI_API_KEY")
	p.OpenAIBaseURL = getEnvOrDefault("KIEZFINDER_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.OpenAIModel = getEnvOrDefault("KIEZFINDER_OPENAI_MODEL", "gpt-4o-mini")

	p.WikipediaBaseURL = getEnvOrDefault("KIEZFINDER_WIKIPEDIA_BASE_URL", "https://en.wikipedia.org")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Driver != "" && p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}

	if p.Data != "" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
	}

	if p.Driver == "sqlite" && p.DSN == "" {
		if p.Data == "" {
			return errors.New("sqlite driver requires --data or --dsn")
		}
		p.DSN = filepath.Join(p.Data, "kiezfinder_"+p.Mode+".db")
	}

	return nil
}
