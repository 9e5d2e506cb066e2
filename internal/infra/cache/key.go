package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/vietddude/diligence/internal/core/domain"
)

// hashLen is the number of hex characters kept from the params digest.
const hashLen = 16

// Key derives a deterministic cache key for a request. Params are serialized
// sorted by name so construction order never changes the key. The readable
// provider:endpoint prefix keeps keys debuggable in redis.
func Key(provider domain.ProviderID, endpoint string, params map[string]any) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s=%v;", name, params[name])
	}

	sum := sha256.Sum256([]byte(b.String()))
	digest := hex.EncodeToString(sum[:])[:hashLen]

	return fmt.Sprintf("%s:%s:%s", provider, endpoint, digest)
}
