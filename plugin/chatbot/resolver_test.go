package chatbot

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/kiezfinder/kiezfinder/plugin/chatbot/oracle"
	"github.com/kiezfinder/kiezfinder/plugin/chatbot/session"
)

type stubWeather struct {
	summary string
	err     error
}

func (s *stubWeather) CurrentConditions(context.Context, string) (string, error) {
	return s.summary, s.err
}

type stubGenerative struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (s *stubGenerative) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.reply, s.err
}

type stubEncyclopedia struct {
	summary string
	err     error
}

func (s *stubEncyclopedia) Summarize(context.Context, string) (string, error) {
	return s.summary, s.err
}

func testKnowledge() *KnowledgeStore {
	return &KnowledgeStore{
		Dialogues: []DialogEntry{
			{Trigger: "hello", Reply: "Hi there! How can I help you?"},
			{Trigger: "hello there friend", Reply: "Warm welcome!"},
			{Trigger: "how is the weather looking", Reply: "Right now: {weather}. Anything else?", Next: "weather_smalltalk"},
		},
		Factual: map[string]string{
			"what is the average rent in kreuzberg": "Average rent in Kreuzberg is around 14 euros per square meter.",
		},
		Website: map[string]string{
			"how do i use the map view": "Open the map tab and click a borough to see its neighborhoods.",
		},
	}
}

func newTestResolver(cfg Config) *Resolver {
	if cfg.Knowledge == nil {
		cfg.Knowledge = testKnowledge()
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewMemoryStore()
	}
	return NewResolver(cfg)
}

func TestResolverNameMemory(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(Config{})

	t.Run("RemembersAndRecalls", func(t *testing.T) {
		reply := r.Resolve(ctx, "s1", "My name is john smith")
		if reply.Strategy != StrategyNameMemory {
			t.Errorf("expected name_memory strategy, got %s", reply.Strategy)
		}
		if reply.Text != "Nice to meet you, John Smith! I'll remember your name." {
			t.Errorf("unexpected reply: %q", reply.Text)
		}

		reply = r.Resolve(ctx, "s1", "What is my name?")
		if reply.Text != "Your name is John Smith." {
			t.Errorf("unexpected recall reply: %q", reply.Text)
		}
	})

	t.Run("NameIsPerSession", func(t *testing.T) {
		reply := r.Resolve(ctx, "s2", "what's my name")
		if reply.Strategy == StrategyNameMemory {
			t.Errorf("session without a name must fall through, got %q", reply.Text)
		}
	})
}

func TestResolverDialogs(t *testing.T) {
	ctx := context.Background()

	t.Run("ExactBeatsPartial", func(t *testing.T) {
		r := newTestResolver(Config{})
		// "hello there friend" contains the shorter "hello" trigger; the
		// exact pass must win before the partial pass runs.
		reply := r.Resolve(ctx, "s1", "Hello there friend!")
		if reply.Strategy != StrategyDialogExact {
			t.Errorf("expected dialog_exact, got %s", reply.Strategy)
		}
		if reply.Text != "Warm welcome!" {
			t.Errorf("unexpected reply: %q", reply.Text)
		}
	})

	t.Run("PartialSubstringMatch", func(t *testing.T) {
		r := newTestResolver(Config{})
		reply := r.Resolve(ctx, "s1", "well hello there")
		if reply.Strategy != StrategyDialogPartial {
			t.Errorf("expected dialog_partial, got %s", reply.Strategy)
		}
		if reply.Text != "Hi there! How can I help you?" {
			t.Errorf("unexpected reply: %q", reply.Text)
		}
	})

	t.Run("WeatherPlaceholderSubstituted", func(t *testing.T) {
		sessions := session.NewMemoryStore()
		r := newTestResolver(Config{
			Sessions: sessions,
			Weather:  &stubWeather{summary: "12°C and sunny in Berlin, humidity 60%, wind 11 km/h"},
		})

		reply := r.Resolve(ctx, "s1", "How is the weather looking?")
		want := "Right now: 12°C and sunny in Berlin, humidity 60%, wind 11 km/h. Anything else?"
		if reply.Text != want {
			t.Errorf("got %q, want %q", reply.Text, want)
		}
		if strings.Contains(reply.Text, WeatherPlaceholder) {
			t.Error("placeholder leaked into the reply")
		}

		state, err := sessions.Get(ctx, "s1")
		if err != nil {
			t.Fatal(err)
		}
		if state.Stage != "weather_smalltalk" {
			t.Errorf("expected stage tag to advance, got %q", state.Stage)
		}
	})

	t.Run("WeatherFailureDegrades", func(t *testing.T) {
		r := newTestResolver(Config{
			Weather: &stubWeather{err: oracle.ErrNotConfigured},
		})
		reply := r.Resolve(ctx, "s1", "how is the weather looking")
		if !strings.Contains(reply.Text, "couldn't reach the weather service") {
			t.Errorf("expected degraded weather reply, got %q", reply.Text)
		}
	})
}

func TestResolverKnowledgeBases(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(Config{})

	t.Run("FactualFuzzyMatch", func(t *testing.T) {
		reply := r.Resolve(ctx, "s1", "average rent in Kreuzberg, what is it?")
		if reply.Strategy != StrategyFactual {
			t.Errorf("expected factual, got %s (%q)", reply.Strategy, reply.Text)
		}
		if reply.Text != "Average rent in Kreuzberg is around 14 euros per square meter." {
			t.Errorf("unexpected reply: %q", reply.Text)
		}
	})

	t.Run("WebsiteFuzzyMatch", func(t *testing.T) {
		reply := r.Resolve(ctx, "s1", "how do I use the map?")
		if reply.Strategy != StrategyWebsite {
			t.Errorf("expected website, got %s (%q)", reply.Strategy, reply.Text)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		first := r.Resolve(ctx, "s1", "what is the average rent in kreuzberg")
		for i := 0; i < 5; i++ {
			again := r.Resolve(ctx, "s1", "what is the average rent in kreuzberg")
			if again.Text != first.Text || again.Strategy != first.Strategy {
				t.Fatalf("resolution not deterministic: %q vs %q", again.Text, first.Text)
			}
		}
	})
}

func TestResolverWeatherIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("IntentWithCity", func(t *testing.T) {
		r := newTestResolver(Config{
			Weather: &stubWeather{summary: "8°C and overcast in Berlin, humidity 80%, wind 15 km/h"},
		})
		reply := r.Resolve(ctx, "s1", "What's the temperature in Berlin?")
		if reply.Strategy != StrategyWeather {
			t.Errorf("expected weather, got %s (%q)", reply.Strategy, reply.Text)
		}
		if reply.Text != "8°C and overcast in Berlin, humidity 80%, wind 15 km/h" {
			t.Errorf("unexpected reply: %q", reply.Text)
		}
	})

	t.Run("IntentWithoutCityFallsThrough", func(t *testing.T) {
		r := newTestResolver(Config{
			Weather: &stubWeather{summary: "should not be used"},
		})
		reply := r.Resolve(ctx, "s1", "what is the temperature")
		if reply.Strategy == StrategyWeather {
			t.Errorf("temperature question without the city must not trigger the weather intent")
		}
	})
}

func TestResolverGenerative(t *testing.T) {
	ctx := context.Background()

	t.Run("CompletionWins", func(t *testing.T) {
		gen := &stubGenerative{reply: "Try the flea market at Mauerpark on Sunday."}
		r := newTestResolver(Config{Generative: gen})

		reply := r.Resolve(ctx, "s1", "plan my weekend")
		if reply.Strategy != StrategyGenerative {
			t.Fatalf("expected generative, got %s (%q)", reply.Strategy, reply.Text)
		}
		if reply.Text != "Try the flea market at Mauerpark on Sunday." {
			t.Errorf("unexpected reply: %q", reply.Text)
		}

		if len(gen.prompts) != 1 {
			t.Fatalf("expected one completion call, got %d", len(gen.prompts))
		}
		if !strings.Contains(gen.prompts[0], "User: plan my weekend") {
			t.Errorf("prompt missing the user turn: %q", gen.prompts[0])
		}
		if !strings.Contains(gen.prompts[0], "neighborhood guide") {
			t.Errorf("prompt missing the system framing: %q", gen.prompts[0])
		}
	})

	t.Run("PromptCarriesRecentHistory", func(t *testing.T) {
		gen := &stubGenerative{reply: "Sounds good."}
		r := newTestResolver(Config{Generative: gen})

		r.Resolve(ctx, "s1", "plan my weekend")
		r.Resolve(ctx, "s1", "something outdoors please")

		last := gen.prompts[len(gen.prompts)-1]
		if !strings.Contains(last, "User: plan my weekend") {
			t.Errorf("prompt missing earlier exchange: %q", last)
		}
	})

	t.Run("FailureFallsThrough", func(t *testing.T) {
		r := newTestResolver(Config{Generative: &stubGenerative{err: oracle.ErrNotConfigured}})
		reply := r.Resolve(ctx, "s1", "plan my weekend")
		if reply.Strategy == StrategyGenerative {
			t.Errorf("failed completion must not produce a reply")
		}
	})

	t.Run("EmptyCompletionFallsThrough", func(t *testing.T) {
		r := newTestResolver(Config{Generative: &stubGenerative{reply: "   "}})
		reply := r.Resolve(ctx, "s1", "plan my weekend")
		if reply.Strategy == StrategyGenerative {
			t.Errorf("blank completion must not produce a reply")
		}
	})
}

func TestResolverEncyclopedia(t *testing.T) {
	ctx := context.Background()

	t.Run("SummaryWins", func(t *testing.T) {
		r := newTestResolver(Config{
			Encyclopedia: &stubEncyclopedia{summary: "Tempelhof is a former airport turned public park."},
		})
		reply := r.Resolve(ctx, "s1", "Tell me about Tempelhof")
		if reply.Strategy != StrategyEncyclopedia {
			t.Fatalf("expected encyclopedia, got %s (%q)", reply.Strategy, reply.Text)
		}
		if reply.Text != "Tempelhof is a former airport turned public park." {
			t.Errorf("unexpected reply: %q", reply.Text)
		}
	})

	t.Run("DisambiguationIsAReply", func(t *testing.T) {
		r := newTestResolver(Config{
			Encyclopedia: &stubEncyclopedia{err: &oracle.DisambiguationError{
				Query:      "mercury",
				Candidates: []string{"Mercury (planet)", "Mercury (element)"},
			}},
		})
		reply := r.Resolve(ctx, "s1", "tell me about mercury")
		if reply.Strategy != StrategyEncyclopedia {
			t.Fatalf("expected encyclopedia, got %s (%q)", reply.Strategy, reply.Text)
		}
		want := "That could mean a few things. Did you mean: Mercury (planet), Mercury (element)?"
		if reply.Text != want {
			t.Errorf("got %q, want %q", reply.Text, want)
		}
	})

	t.Run("NotFoundIsAReply", func(t *testing.T) {
		r := newTestResolver(Config{
			Encyclopedia: &stubEncyclopedia{err: oracle.ErrNotFound},
		})
		reply := r.Resolve(ctx, "s1", "tell me about xyzzyplugh")
		if reply.Strategy != StrategyEncyclopedia {
			t.Fatalf("expected encyclopedia, got %s (%q)", reply.Strategy, reply.Text)
		}
		if reply.Text != notFoundReply {
			t.Errorf("unexpected reply: %q", reply.Text)
		}
	})

	t.Run("TransportFailureFallsThrough", func(t *testing.T) {
		r := newTestResolver(Config{
			Encyclopedia: &stubEncyclopedia{err: oracle.ErrNotConfigured},
		})
		reply := r.Resolve(ctx, "s1", "tell me about something obscure")
		if reply.Strategy != StrategyFallback {
			t.Errorf("transport failure must fall through to the fallback, got %s", reply.Strategy)
		}
	})
}

func TestResolverFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("GibberishGetsAFact", func(t *testing.T) {
		r := newTestResolver(Config{})
		reply := r.Resolve(ctx, "s1", "asdkjashdkjahsd")
		if reply.Strategy != StrategyFallback {
			t.Fatalf("expected fallback, got %s (%q)", reply.Strategy, reply.Text)
		}
		found := false
		for _, fact := range FallbackFacts {
			if reply.Text == fact {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("fallback reply %q is not one of the fixed facts", reply.Text)
		}
	})

	t.Run("AllOraclesFailingStillAnswers", func(t *testing.T) {
		r := newTestResolver(Config{
			Weather:      &stubWeather{err: oracle.ErrNotConfigured},
			Generative:   &stubGenerative{err: oracle.ErrNotConfigured},
			Encyclopedia: &stubEncyclopedia{err: oracle.ErrNotConfigured},
		})
		reply := r.Resolve(ctx, "s1", "asdkjashdkjahsd")
		if reply.Text == "" {
			t.Error("resolver must never return an empty reply")
		}
		if reply.Strategy != StrategyFallback {
			t.Errorf("expected fallback, got %s", reply.Strategy)
		}
	})
}

func TestResolverRecordsExchanges(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewMemoryStore()
	r := newTestResolver(Config{Sessions: sessions})

	reply := r.Resolve(ctx, "s1", "hello")

	state, err := sessions.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.RecentMessages) != 2 {
		t.Fatalf("expected one recorded exchange, got %v", state.RecentMessages)
	}
	if state.RecentMessages[0] != "User: hello" {
		t.Errorf("unexpected user entry: %q", state.RecentMessages[0])
	}
	if state.RecentMessages[1] != "Bot: "+reply.Text {
		t.Errorf("unexpected bot entry: %q", state.RecentMessages[1])
	}

	// The log stays capped no matter how long the conversation runs.
	for i := 0; i < 10; i++ {
		r.Resolve(ctx, "s1", "hello")
	}
	state, err = sessions.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.RecentMessages) != session.MaxRecentMessages {
		t.Errorf("expected %d recent messages, got %d", session.MaxRecentMessages, len(state.RecentMessages))
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  Hello!  ", "hello"},
		{"What is my name???", "what is my name"},
		{"Already lower", "already lower"},
		{"trailing dots...", "trailing dots"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
