package llm

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Use the embedded BPE ranks so counting never touches the network.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TokenEstimator counts prompt tokens with the cl100k_base encoding.
// Claude uses a different tokenizer; the count is an estimate for budgeting.
type TokenEstimator struct {
	encoding *tiktoken.Tiktoken
	mu       sync.Mutex
}

var (
	estimator     *TokenEstimator
	estimatorOnce sync.Once
	estimatorErr  error
)

// NewTokenEstimator returns the shared estimator, loading the encoding once.
func NewTokenEstimator() (*TokenEstimator, error) {
	estimatorOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			estimatorErr = fmt.Errorf("failed to load cl100k_base encoding: %w", err)
			return
		}
		estimator = &TokenEstimator{encoding: enc}
	})
	return estimator, estimatorErr
}

// Count returns the number of tokens in text.
func (e *TokenEstimator) Count(text string) int {
	if text == "" {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.encoding.Encode(text, nil, nil))
}
