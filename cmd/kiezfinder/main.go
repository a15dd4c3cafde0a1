package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiezfinder/kiezfinder/internal/profile"
	"github.com/kiezfinder/kiezfinder/plugin/chatbot"
	"github.com/kiezfinder/kiezfinder/plugin/chatbot/oracle"
	"github.com/kiezfinder/kiezfinder/plugin/chatbot/session"
	"github.com/kiezfinder/kiezfinder/server"
	apiv1 "github.com/kiezfinder/kiezfinder/server/router/api/v1"
	"github.com/kiezfinder/kiezfinder/store"
	"github.com/kiezfinder/kiezfinder/store/db"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "kiezfinder",
	Short: "Neighborhood guide server with a chat assistant",
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile := &profile.Profile{
			Mode:        viper.GetString("mode"),
			Addr:        viper.GetString("addr"),
			Port:        viper.GetInt("port"),
			Data:        viper.GetString("data"),
			Driver:      viper.GetString("driver"),
			DSN:         viper.GetString("dsn"),
			DialogPath:  viper.GetString("dialog"),
			FactualPath: viper.GetString("factual"),
			WebsitePath: viper.GetString("website"),
			Version:     version,
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			return err
		}

		return run(instanceProfile)
	},
}

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `mode of the server, can be "dev" or "prod"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of the server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "", `database driver, "sqlite" or "postgres" (empty disables the neighborhood store)`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name")
	rootCmd.PersistentFlags().String("dialog", "data/dialogues.yaml", "path to the dialog script")
	rootCmd.PersistentFlags().String("factual", "data/factual.yaml", "path to the factual knowledge base")
	rootCmd.PersistentFlags().String("website", "data/website.yaml", "path to the website knowledge base")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("kiezfinder")
	viper.AutomaticEnv()
}

func run(instanceProfile *profile.Profile) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	level := slog.LevelInfo
	if instanceProfile.IsDev() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Neighborhood store is optional; the chat feature works without it.
	var dataStore *store.Store
	if instanceProfile.Driver != "" {
		driver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			return err
		}
		dataStore = store.New(driver, instanceProfile)
		defer dataStore.Close()
	}

	knowledge := chatbot.LoadKnowledge(chatbot.KnowledgePaths{
		Dialog:  instanceProfile.DialogPath,
		Factual: instanceProfile.FactualPath,
		Website: instanceProfile.WebsitePath,
	})

	sessions := newSessionService(instanceProfile, dataStore)
	cleanup := session.NewCleanupJob(sessions, session.DefaultCleanupConfig())
	cleanup.Start(ctx)
	defer cleanup.Stop()

	var generative oracle.Generative
	if instanceProfile.IsGenerativeEnabled() {
		generative = oracle.NewGenerativeClient(oracle.GenerativeConfig{
			APIKey:  instanceProfile.OpenAIAPIKey,
			BaseURL: instanceProfile.OpenAIBaseURL,
			Model:   instanceProfile.OpenAIModel,
		})
	} else {
		slog.Info("generative oracle disabled, no API key configured")
	}

	resolver := chatbot.NewResolver(chatbot.Config{
		Knowledge: knowledge,
		Sessions:  sessions,
		Weather: oracle.NewWeatherClient(oracle.WeatherConfig{
			APIKey:  instanceProfile.WeatherAPIKey,
			BaseURL: instanceProfile.WeatherBaseURL,
		}),
		Generative:   generative,
		Encyclopedia: oracle.NewWikipediaClient(oracle.WikipediaConfig{BaseURL: instanceProfile.WikipediaBaseURL}),
		City:         instanceProfile.WeatherCity,
	})

	apiService := apiv1.NewAPIV1Service(instanceProfile, resolver, sessions, dataStore)
	return server.NewServer(instanceProfile, apiService, dataStore).Start(ctx)
}

// newSessionService picks persistent session memory when the sqlite store is
// available, falling back to the in-process map.
func newSessionService(instanceProfile *profile.Profile, dataStore *store.Store) session.Service {
	if dataStore != nil && instanceProfile.Driver == "sqlite" {
		svc, err := session.NewSQLiteStore(dataStore.GetDriver().GetDB())
		if err == nil {
			slog.Info("using sqlite session store")
			return svc
		}
		slog.Warn("failed to initialize sqlite session store, using memory", "error", err)
	}
	return session.NewMemoryStore()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
