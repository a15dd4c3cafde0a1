package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kiezfinder/kiezfinder/plugin/chatbot/oracle"
	"github.com/kiezfinder/kiezfinder/plugin/chatbot/session"
)

// Strategy identifies which link of the fallback chain produced a reply.
// It is surfaced for logging and tests, not to API clients.
type Strategy string

const (
	StrategyNameMemory    Strategy = "name_memory"
	StrategyDialogExact   Strategy = "dialog_exact"
	StrategyDialogPartial Strategy = "dialog_partial"
	StrategyFactual       Strategy = "factual"
	StrategyWebsite       Strategy = "website"
	StrategyWeather       Strategy = "weather"
	StrategyGenerative    Strategy = "generative"
	StrategyEncyclopedia  Strategy = "encyclopedia"
	StrategyFallback      Strategy = "fallback"
)

// WeatherPlaceholder is the token dialog replies embed where the live
// weather summary is substituted.
const WeatherPlaceholder = "{weather}"

// DefaultCity is the location the weather strategies report on.
const DefaultCity = "Berlin"

const (
	nameStatementMarker = "my name is"

	weatherUnavailableReply = "I couldn't reach the weather service right now, please try again later."
	notFoundReply           = "Sorry, I couldn't find information about that."

	// generativePreamble is the fixed system framing for completion prompts.
	generativePreamble = "You are a friendly assistant for a Berlin neighborhood guide. " +
		"Answer briefly and helpfully."
)

// nameQueryMarkers are the phrasings that ask the bot to recall the name.
var nameQueryMarkers = []string{"what is my name", "what's my name"}

// encyclopediaPrefixes are stripped from a message before the encyclopedic
// lookup.
var encyclopediaPrefixes = []string{
	"tell me about",
	"what do you know about",
	"do you know about",
}

// FallbackFacts is the fixed trivia set returned when every other strategy
// yields nothing.
var FallbackFacts = []string{
	"Berlin has more bridges than Venice, over 1,700 of them.",
	"Around a third of Berlin is covered by forests, parks, lakes and rivers.",
	"Berlin's U-Bahn network stretches roughly 146 kilometers underground.",
}

// Reply is the resolver's output.
type Reply struct {
	Text     string
	Strategy Strategy
}

// Resolver evaluates an ordered chain of reply strategies and returns the
// first non-empty result. It never returns an error; every sub-strategy
// failure degrades to "no result" and the chain proceeds, with the random
// fallback fact as the worst case.
type Resolver struct {
	knowledge    *KnowledgeStore
	sessions     session.Service
	weather      oracle.Weather
	generative   oracle.Generative
	encyclopedia oracle.Encyclopedia

	city  string
	chain []chainLink
}

type chainLink struct {
	name Strategy
	fn   func(ctx context.Context, t *turn) (string, bool)
}

// turn carries the per-message state through the chain.
type turn struct {
	sessionID string
	raw       string
	msg       string // normalized
}

// Config wires the resolver's collaborators. Sessions and Knowledge are
// required; oracles may be nil, which disables their strategies.
type Config struct {
	Knowledge    *KnowledgeStore
	Sessions     session.Service
	Weather      oracle.Weather
	Generative   oracle.Generative
	Encyclopedia oracle.Encyclopedia
	City         string
}

// NewResolver creates a resolver with the strategy chain in its fixed
// priority order.
func NewResolver(cfg Config) *Resolver {
	r := &Resolver{
		knowledge:    cfg.Knowledge,
		sessions:     cfg.Sessions,
		weather:      cfg.Weather,
		generative:   cfg.Generative,
		encyclopedia: cfg.Encyclopedia,
		city:         cfg.City,
	}
	if r.city == "" {
		r.city = DefaultCity
	}

	// Priority order is an explicit design decision, first non-empty wins.
	r.chain = []chainLink{
		{StrategyNameMemory, r.resolveNameMemory},
		{StrategyDialogExact, r.resolveDialogExact},
		{StrategyDialogPartial, r.resolveDialogPartial},
		{StrategyFactual, r.resolveFactual},
		{StrategyWebsite, r.resolveWebsite},
		{StrategyWeather, r.resolveWeatherIntent},
		{StrategyGenerative, r.resolveGenerative},
		{StrategyEncyclopedia, r.resolveEncyclopedia},
		{StrategyFallback, r.resolveFallback},
	}
	return r
}

// Resolve produces a reply for the message and records the exchange in
// session memory.
func (r *Resolver) Resolve(ctx context.Context, sessionID, rawMessage string) Reply {
	t := &turn{
		sessionID: sessionID,
		raw:       rawMessage,
		msg:       Normalize(rawMessage),
	}

	var reply Reply
	for _, link := range r.chain {
		if text, ok := link.fn(ctx, t); ok {
			reply = Reply{Text: text, Strategy: link.name}
			break
		}
	}

	if err := r.sessions.AppendExchange(ctx, sessionID, rawMessage, reply.Text); err != nil {
		slog.Warn("failed to record exchange", "session_id", sessionID, "error", err)
	}

	slog.Debug("message resolved",
		"session_id", sessionID,
		"strategy", string(reply.Strategy),
		"message_length", len(rawMessage))

	return reply
}

// Normalize trims the message, lowercases it and strips trailing
// punctuation.
func Normalize(message string) string {
	msg := strings.ToLower(strings.TrimSpace(message))
	return strings.TrimRight(msg, ".!?")
}

// resolveNameMemory handles "my name is X" and "what is my name". It never
// consults the knowledge store.
func (r *Resolver) resolveNameMemory(ctx context.Context, t *turn) (string, bool) {
	if idx := strings.Index(t.msg, nameStatementMarker); idx >= 0 {
		name := strings.TrimSpace(t.msg[idx+len(nameStatementMarker):])
		if name != "" {
			// Casers are stateful, build one per call.
			name = cases.Title(language.English).String(name)
			if err := r.sessions.RememberName(ctx, t.sessionID, name); err != nil {
				slog.Warn("failed to remember name", "session_id", t.sessionID, "error", err)
			}
			return fmt.Sprintf("Nice to meet you, %s! I'll remember your name.", name), true
		}
	}

	for _, marker := range nameQueryMarkers {
		if strings.Contains(t.msg, marker) {
			name, err := r.sessions.RecallName(ctx, t.sessionID)
			if err != nil {
				slog.Warn("failed to recall name", "session_id", t.sessionID, "error", err)
				return "", false
			}
			if name != "" {
				return fmt.Sprintf("Your name is %s.", name), true
			}
		}
	}
	return "", false
}

// resolveDialogExact scans dialog entries in source order for an exact
// trigger match.
func (r *Resolver) resolveDialogExact(ctx context.Context, t *turn) (string, bool) {
	for _, entry := range r.knowledge.Dialogues {
		if Normalize(entry.Trigger) == t.msg {
			return r.dialogReply(ctx, t, entry), true
		}
	}
	return "", false
}

// resolveDialogPartial runs the second pass: an entry matches when its
// trigger appears as a substring of the message. Short triggers can mis-fire
// here, kept for compatibility with the scripted dialogs.
func (r *Resolver) resolveDialogPartial(ctx context.Context, t *turn) (string, bool) {
	for _, entry := range r.knowledge.Dialogues {
		trigger := Normalize(entry.Trigger)
		if trigger != "" && strings.Contains(t.msg, trigger) {
			return r.dialogReply(ctx, t, entry), true
		}
	}
	return "", false
}

// dialogReply applies the matched entry's stage tag and weather placeholder.
func (r *Resolver) dialogReply(ctx context.Context, t *turn, entry DialogEntry) string {
	if entry.Next != "" {
		if err := r.sessions.SetStage(ctx, t.sessionID, entry.Next); err != nil {
			slog.Warn("failed to set dialog stage", "session_id", t.sessionID, "error", err)
		}
	}

	reply := entry.Reply
	if strings.Contains(reply, WeatherPlaceholder) {
		reply = strings.ReplaceAll(reply, WeatherPlaceholder, r.weatherSummary(ctx))
	}
	return reply
}

func (r *Resolver) resolveFactual(_ context.Context, t *turn) (string, bool) {
	match, ok := BestMatch(t.msg, r.knowledge.Factual)
	if ok && match.Score >= FactualMatchThreshold {
		return match.Reply, true
	}
	return "", false
}

func (r *Resolver) resolveWebsite(_ context.Context, t *turn) (string, bool) {
	match, ok := BestMatch(t.msg, r.knowledge.Website)
	if ok && match.Score >= WebsiteMatchThreshold {
		return match.Reply, true
	}
	return "", false
}

// resolveWeatherIntent answers messages that combine a temperature intent
// with the configured city.
func (r *Resolver) resolveWeatherIntent(ctx context.Context, t *turn) (string, bool) {
	hasIntent := strings.Contains(t.msg, "weather") || strings.Contains(t.msg, "temperature")
	if !hasIntent || !strings.Contains(t.msg, strings.ToLower(r.city)) {
		return "", false
	}
	return r.weatherSummary(ctx), true
}

// weatherSummary asks the weather oracle, degrading to a user-facing failure
// string. The oracle never propagates an exception to the resolver.
func (r *Resolver) weatherSummary(ctx context.Context) string {
	if r.weather == nil {
		return weatherUnavailableReply
	}
	summary, err := r.weather.CurrentConditions(ctx, r.city)
	if err != nil {
		slog.Warn("weather lookup failed", "city", r.city, "error", err)
		return weatherUnavailableReply
	}
	return summary
}

// resolveGenerative builds a bounded prompt from the session's recent
// messages and asks the completion oracle. Any failure, including a missing
// credential, yields no result.
func (r *Resolver) resolveGenerative(ctx context.Context, t *turn) (string, bool) {
	if r.generative == nil {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString(generativePreamble)
	sb.WriteString("\n\n")
	if state, err := r.sessions.Get(ctx, t.sessionID); err == nil {
		for _, line := range state.RecentMessages {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("User: ")
	sb.WriteString(t.raw)

	text, err := r.generative.Complete(ctx, sb.String())
	if err != nil {
		slog.Debug("generative completion unavailable", "error", err)
		return "", false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	return text, true
}

// resolveEncyclopedia strips known query prefixes and asks the encyclopedia
// oracle. Disambiguation and not-found are valid replies; a transport
// failure falls through so the chain can still answer.
func (r *Resolver) resolveEncyclopedia(ctx context.Context, t *turn) (string, bool) {
	if r.encyclopedia == nil {
		return "", false
	}

	query := t.msg
	for _, prefix := range encyclopediaPrefixes {
		if strings.HasPrefix(query, prefix) {
			query = strings.TrimSpace(strings.TrimPrefix(query, prefix))
			break
		}
	}
	if query == "" {
		return "", false
	}

	summary, err := r.encyclopedia.Summarize(ctx, query)
	if err == nil {
		return summary, true
	}

	var disambiguation *oracle.DisambiguationError
	switch {
	case errors.As(err, &disambiguation):
		if len(disambiguation.Candidates) == 0 {
			return notFoundReply, true
		}
		return fmt.Sprintf("That could mean a few things. Did you mean: %s?",
			strings.Join(disambiguation.Candidates, ", ")), true
	case errors.Is(err, oracle.ErrNotFound):
		return notFoundReply, true
	default:
		slog.Debug("encyclopedia lookup unavailable", "error", err)
		return "", false
	}
}

// resolveFallback picks a random fixed trivia sentence. It always succeeds.
func (r *Resolver) resolveFallback(context.Context, *turn) (string, bool) {
	return FallbackFacts[rand.IntN(len(FallbackFacts))], true
}
