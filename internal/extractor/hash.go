package extractor

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ContentHash returns a stable hash of the body with case and whitespace
// differences removed. It is the de-duplication key for repeated ingestion.
func ContentHash(body string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(body)), " ")
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalized))
}
