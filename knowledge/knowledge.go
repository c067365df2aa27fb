// Package knowledge is a small keyword-scored knowledge base that backs the
// lookup tool. Entries are authored in YAML:
//
//	entries:
//	  - id: roaming
//	    title: International roaming
//	    tags: [roaming, travel]
//	    content: Roaming is included on Unlimited plans in 70 countries.
package knowledge

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultBase []byte

// ErrNoMatch is returned by Search when no entry shares a term with the query.
var ErrNoMatch = errors.New("no matching knowledge base entries")

// Entry is one knowledge base article.
type Entry struct {
	ID      string   `yaml:"id" json:"id"`
	Title   string   `yaml:"title" json:"title"`
	Tags    []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Content string   `yaml:"content" json:"content"`
}

// Result is a scored search hit.
type Result struct {
	Entry
	Score int `json:"score"`
}

type indexed struct {
	entry   Entry
	title   map[string]bool
	tags    map[string]bool
	content map[string]int
}

// Base is an immutable, searchable set of entries. Safe for concurrent use.
type Base struct {
	entries []indexed
}

// New indexes entries. Entries need a unique, non-empty ID.
func New(entries []Entry) (*Base, error) {
	b := &Base{entries: make([]indexed, 0, len(entries))}
	seen := make(map[string]bool, len(entries))

	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("entry %d: missing id", i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("entry %q: duplicate id", e.ID)
		}
		seen[e.ID] = true

		ix := indexed{
			entry:   e,
			title:   make(map[string]bool),
			tags:    make(map[string]bool),
			content: make(map[string]int),
		}
		for _, t := range terms(e.Title) {
			ix.title[t] = true
		}
		for _, tag := range e.Tags {
			for _, t := range terms(tag) {
				ix.tags[t] = true
			}
		}
		for _, t := range terms(e.Content) {
			ix.content[t]++
		}
		b.entries = append(b.entries, ix)
	}
	return b, nil
}

// Load parses a YAML document with a top-level "entries" list.
func Load(r io.Reader) (*Base, error) {
	var doc struct {
		Entries []Entry `yaml:"entries"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}
	return New(doc.Entries)
}

// LoadFile reads a knowledge base from a YAML file.
func LoadFile(path string) (*Base, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the built-in knowledge base.
func Default() *Base {
	b, err := Load(bytes.NewReader(defaultBase))
	if err != nil {
		panic(fmt.Sprintf("knowledge: built-in base: %v", err))
	}
	return b
}

// Len returns the number of entries.
func (b *Base) Len() int {
	return len(b.entries)
}

// Search scores every entry against the query and returns up to limit hits,
// best first. Title and tag matches weigh three and two, each content
// occurrence one. limit <= 0 returns every hit.
func (b *Base) Search(query string, limit int) ([]Result, error) {
	q := terms(query)
	if len(q) == 0 {
		return nil, ErrNoMatch
	}

	var results []Result
	for _, ix := range b.entries {
		score := 0
		for _, t := range q {
			if ix.title[t] {
				score += 3
			}
			if ix.tags[t] {
				score += 2
			}
			score += ix.content[t]
		}
		if score > 0 {
			results = append(results, Result{Entry: ix.entry, Score: score})
		}
	}

	if len(results) == 0 {
		return nil, ErrNoMatch
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "can": true, "do": true,
	"for": true, "how": true, "i": true, "in": true, "is": true, "it": true,
	"my": true, "of": true, "on": true, "or": true, "the": true, "to": true,
	"what": true, "with": true, "you": true,
}

func terms(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := fields[:0]
	for _, f := range fields {
		if !stopwords[f] {
			out = append(out, f)
		}
	}
	return out
}
