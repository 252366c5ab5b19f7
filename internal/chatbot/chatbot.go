// Package chatbot answers free-text questions from a fixed set of intents by
// TF-IDF similarity against the intents' example patterns.
package chatbot

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"clinic-api/internal/logger"
)

const (
	DefaultThreshold = 0.25

	msgEmpty      = "Decime tu consulta para poder ayudarte 🙂"
	msgNoIntents  = "El chatbot no tiene conocimiento cargado (intents.json vacío)."
	msgNoPatterns = "No hay patrones configurados en intents.json."
	msgFallback   = "Disculpa, no tengo esa información específica en mi memoria por el momento. " +
		"Para esa consulta, por favor contacta directamente al consultorio al: +506 8748 4854"
)

type Intent struct {
	Tag        string   `json:"tag"`
	Patterns   []string `json:"patterns"`
	Responses  []string `json:"responses"`
	ContextSet *string  `json:"context_set,omitempty"`
}

type intentsFile struct {
	Intents []Intent `json:"intents"`
}

type Reply struct {
	Message  string   `json:"message"`
	Response string   `json:"response"`
	Context  *string  `json:"context"`
	Tag      string   `json:"tag,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}

// Bot loads its intents file on first use and keeps them for the life of the
// process.
type Bot struct {
	path      string
	log       *slog.Logger
	Threshold float64

	once    sync.Once
	intents []Intent
}

func New(path string, log *slog.Logger) *Bot {
	return &Bot{path: path, log: log, Threshold: DefaultThreshold}
}

// NewWithIntents skips the file entirely.
func NewWithIntents(intents []Intent) *Bot {
	b := &Bot{Threshold: DefaultThreshold, intents: intents}
	b.once.Do(func() {})
	return b
}

func (b *Bot) load() {
	b.once.Do(func() {
		intents, err := readIntents(b.path)
		if err != nil {
			if b.log != nil {
				b.log.Warn("chatbot intents not loaded", slog.String("path", b.path), logger.Err(err))
			}
			return
		}
		b.intents = intents
	})
}

// a missing file is not an error, just an empty knowledge base
func readIntents(path string) ([]Intent, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var f intentsFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return f.Intents, nil
}

type candidate struct {
	text   string
	intent *Intent
}

// Reply picks the intent whose closest pattern best matches message. The
// returned context is the intent's context_set when it has one, otherwise the
// context passed in.
func (b *Bot) Reply(message string, context *string) Reply {
	b.load()
	out := Reply{Message: message, Context: context}

	if isBlank(message) {
		out.Response = msgEmpty
		return out
	}
	if len(b.intents) == 0 {
		out.Response = msgNoIntents
		return out
	}

	var cands []candidate
	for i := range b.intents {
		in := &b.intents[i]
		if len(in.Patterns) == 0 || len(in.Responses) == 0 {
			continue
		}
		for _, p := range in.Patterns {
			cands = append(cands, candidate{text: p, intent: in})
		}
	}
	if len(cands) == 0 {
		out.Response = msgNoPatterns
		return out
	}

	docs := make([][]string, 0, len(cands)+1)
	for _, c := range cands {
		docs = append(docs, tokenize(c.text))
	}
	docs = append(docs, tokenize(message))

	vecs := vectorize(docs)
	query := vecs[len(vecs)-1]

	best, score := -1, 0.0
	for i := range cands {
		s := dot(query, vecs[i])
		if best == -1 || s > score {
			best, score = i, s
		}
	}

	out.Score = &score
	if score < b.Threshold {
		out.Response = msgFallback
		return out
	}

	in := cands[best].intent
	out.Response = in.Responses[0]
	out.Tag = in.Tag
	if in.ContextSet != nil {
		out.Context = in.ContextSet
	}
	return out
}
