// Package chatbot implements the rule-based conversational response resolver
// behind the chat endpoint: a layered fallback chain over scripted dialogs,
// fuzzy-matched knowledge bases, session name memory and best-effort external
// oracles.
package chatbot

import (
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DialogEntry is a scripted trigger/reply pair. Next optionally names the
// conversation stage the session moves to when the entry matches. The reply
// may embed the WeatherPlaceholder token.
type DialogEntry struct {
	Trigger string `yaml:"trigger"`
	Reply   string `yaml:"reply"`
	Next    string `yaml:"next,omitempty"`
}

// KnowledgeStore holds the three corpora the resolver matches against.
// It is loaded once at startup and read-only afterwards.
type KnowledgeStore struct {
	Dialogues []DialogEntry
	Factual   map[string]string
	Website   map[string]string
}

// KnowledgePaths names the YAML sources for the three corpora.
type KnowledgePaths struct {
	Dialog  string
	Factual string
	Website string
}

// dialogDocumentKey is the required root key of the dialog script file.
const dialogDocumentKey = "dialogues"

// LoadKnowledge loads the three corpora. Loading fails softly: a missing or
// malformed source yields an empty corpus for that category plus a logged
// warning, never an error. The chat feature must degrade, not crash.
func LoadKnowledge(paths KnowledgePaths) *KnowledgeStore {
	store := &KnowledgeStore{
		Factual: map[string]string{},
		Website: map[string]string{},
	}

	if dialogues, err := loadDialogues(paths.Dialog); err != nil {
		slog.Error("dialog script unavailable, continuing without it",
			"path", paths.Dialog, "error", err)
	} else {
		store.Dialogues = dialogues
	}

	if factual, err := loadPairs(paths.Factual); err != nil {
		slog.Warn("factual knowledge base unavailable, continuing without it",
			"path", paths.Factual, "error", err)
	} else {
		store.Factual = factual
	}

	if website, err := loadPairs(paths.Website); err != nil {
		slog.Warn("website knowledge base unavailable, continuing without it",
			"path", paths.Website, "error", err)
	} else {
		store.Website = website
	}

	slog.Info("knowledge store loaded",
		"dialogues", len(store.Dialogues),
		"factual", len(store.Factual),
		"website", len(store.Website))

	return store
}

// loadDialogues parses the dialog script and validates its structure once at
// load time: the document must be a mapping holding a sequence under the
// dialogues key.
func loadDialogues(path string) ([]DialogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read dialog script")
	}

	var root map[string]yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "parse dialog script")
	}

	node, ok := root[dialogDocumentKey]
	if !ok {
		return nil, errors.Errorf("dialog script missing %q key", dialogDocumentKey)
	}
	if node.Kind != yaml.SequenceNode {
		return nil, errors.Errorf("dialog script %q must be a sequence", dialogDocumentKey)
	}

	var dialogues []DialogEntry
	if err := node.Decode(&dialogues); err != nil {
		return nil, errors.Wrap(err, "decode dialog entries")
	}
	return dialogues, nil
}

// loadPairs parses a flat trigger -> reply mapping.
func loadPairs(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read knowledge base")
	}

	pairs := map[string]string{}
	if err := yaml.Unmarshal(data, &pairs); err != nil {
		return nil, errors.Wrap(err, "parse knowledge base")
	}
	return pairs, nil
}
