package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/annotation"
)

// ResultRepository stores completed analysis results so repeated questions
// about the same asset do not trigger fresh inference calls.
type ResultRepository interface {
	// Save stores an analysis result under the given key
	Save(ctx context.Context, key string, result *annotation.Result) error

	// Get retrieves a stored result, ErrResultNotFound when absent
	Get(ctx context.Context, key string) (*annotation.Result, error)
}

// ResultKey derives a stable cache key from the remote asset handle, the
// analysis mode and the prompt text.
func ResultKey(remoteID, mode, prompt string) string {
	sum := sha256.Sum256([]byte(remoteID + "\x00" + mode + "\x00" + prompt))
	return fmt.Sprintf("analysis:%s", hex.EncodeToString(sum[:16]))
}
