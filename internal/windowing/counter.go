package windowing

import (
	"sync"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	log "github.com/sirupsen/logrus"
	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter estimates the input-token cost of a message.
type TokenCounter interface {
	CountMessage(m anthropic.MessageParam) int
}

// blockOverhead is a fixed per-block cost for minimal formatting.
const blockOverhead = 4

// CountGroup sums the cost of every message in g.
func CountGroup(c TokenCounter, g Group, all []anthropic.MessageParam) int {
	total := 0
	for i := g.Start; i < g.End && i < len(all); i++ {
		total += c.CountMessage(all[i])
	}
	return total
}

// blockText returns the countable text of a block: text blocks and the
// nested text of tool_result blocks. Other block kinds have no text.
func blockText(blk anthropic.ContentBlockParamUnion) []string {
	if tb := blk.OfText; tb != nil {
		return []string{tb.Text}
	}
	if tr := blk.OfToolResult; tr != nil {
		var out []string
		for _, nb := range tr.Content {
			if nt := nb.OfText; nt != nil {
				out = append(out, nt.Text)
			}
		}
		return out
	}
	return nil
}

func countWith(m anthropic.MessageParam, count func(string) int) int {
	total := 0
	for _, blk := range m.Content {
		total += blockOverhead
		for _, s := range blockText(blk) {
			total += count(s)
		}
	}
	return total
}

// HeuristicCounter counts one token per rune plus blockOverhead per block.
// Deterministic; tests rely on exact values.
type HeuristicCounter struct{}

func (HeuristicCounter) CountMessage(m anthropic.MessageParam) int {
	return countWith(m, utf8.RuneCountInString)
}

// TokenizerCounter counts BPE tokens with a tiktoken encoding plus
// blockOverhead per block. Claude's tokenizer is not public; cl100k_base is
// a close, slightly conservative stand-in.
type TokenizerCounter struct {
	codec tokenizer.Codec
}

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
	codecErr  error
)

// NewTokenizerCounter loads the cl100k_base encoding once per process.
func NewTokenizerCounter() (*TokenizerCounter, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	if codecErr != nil {
		return nil, codecErr
	}
	return &TokenizerCounter{codec: codec}, nil
}

func (t *TokenizerCounter) CountMessage(m anthropic.MessageParam) int {
	return countWith(m, t.count)
}

func (t *TokenizerCounter) count(s string) int {
	if s == "" {
		return 0
	}
	ids, _, err := t.codec.Encode(s)
	if err != nil {
		// Fall back to the rune heuristic so the budget stays enforced.
		log.WithError(err).Debug("windowing: tokenizer encode failed")
		return utf8.RuneCountInString(s)
	}
	return len(ids)
}
