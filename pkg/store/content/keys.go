package content

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mr-tron/base58"

	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// KeyEncoding selects how a binary identifier becomes a backend key.
type KeyEncoding string

const (
	// KeyRaw uses the identifier bytes as-is. They must be valid UTF-8 for
	// backends whose keys are text (S3, HTTP paths).
	KeyRaw KeyEncoding = "raw"

	// KeyHex uses lowercase hex.
	KeyHex KeyEncoding = "hex"

	// KeyBase58 uses the Bitcoin base58 alphabet; shorter than hex and URL-safe.
	KeyBase58 KeyEncoding = "base58"
)

// ParseKeyEncoding parses a configured encoding name. Empty means raw.
func ParseKeyEncoding(s string) (KeyEncoding, error) {
	switch enc := KeyEncoding(strings.ToLower(strings.TrimSpace(s))); enc {
	case "":
		return KeyRaw, nil
	case KeyRaw, KeyHex, KeyBase58:
		return enc, nil
	default:
		return "", fmt.Errorf("unknown key encoding %q (want raw, hex or base58)", s)
	}
}

// EncodeKey maps id to a textual backend key.
//
// Returns ErrInvalidIdentifier for an empty identifier, or for a raw
// identifier that is not valid UTF-8.
func EncodeKey(id metadata.Identifier, enc KeyEncoding) (string, error) {
	if len(id) == 0 {
		return "", fmt.Errorf("empty identifier: %w", ErrInvalidIdentifier)
	}

	switch enc {
	case KeyRaw, "":
		if !utf8.ValidString(string(id)) {
			return "", fmt.Errorf("identifier %s is not valid UTF-8: %w", id, ErrInvalidIdentifier)
		}
		return string(id), nil
	case KeyHex:
		return hex.EncodeToString(id.Bytes()), nil
	case KeyBase58:
		return base58.Encode(id.Bytes()), nil
	default:
		return "", fmt.Errorf("unknown key encoding %q", enc)
	}
}

// DecodeKey reverses EncodeKey.
func DecodeKey(key string, enc KeyEncoding) (metadata.Identifier, error) {
	switch enc {
	case KeyRaw, "":
		return metadata.Identifier(key), nil
	case KeyHex:
		b, err := hex.DecodeString(key)
		if err != nil {
			return "", fmt.Errorf("decode hex key: %w", err)
		}
		return metadata.IdentifierFromBytes(b), nil
	case KeyBase58:
		b, err := base58.Decode(key)
		if err != nil {
			return "", fmt.Errorf("decode base58 key: %w", err)
		}
		return metadata.IdentifierFromBytes(b), nil
	default:
		return "", fmt.Errorf("unknown key encoding %q", enc)
	}
}
