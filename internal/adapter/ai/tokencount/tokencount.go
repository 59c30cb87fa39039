// Package tokencount provides token counting for model prompts.
//
// It uses tiktoken-go so prompt budgets are enforced with the same tokenizer
// the provider bills against, falling back to a character heuristic for
// models without a published encoding.
package tokencount

import (
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting with cached encodings.
type Counter struct {
	mu    sync.RWMutex
	cache map[string]*tiktoken.Tiktoken
}

// NewCounter creates a new token counter.
func NewCounter() *Counter {
	return &Counter{cache: make(map[string]*tiktoken.Tiktoken)}
}

// Count returns the number of tokens in text for the given model. When no
// encoding is available it approximates at four characters per token, which
// overcounts slightly and therefore stays on the safe side of a budget check.
func (c *Counter) Count(model, text string) int {
	enc, err := c.encodingFor(model)
	if err != nil || enc == nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	key := normalizeModel(model)

	c.mu.RLock()
	enc, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return enc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.cache[key]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(key)
	if err != nil {
		// Most chat models not in tiktoken's table use cl100k_base.
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.cache[key] = enc
	return enc, nil
}

func normalizeModel(model string) string {
	// Strip provider prefixes like "openai/" used by OpenAI-compatible routers.
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	return model
}
