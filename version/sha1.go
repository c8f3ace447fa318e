package version

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
)

// SHA1Sum is a 20-byte checksum, serialized as 40 lower-case hex characters.
// The zero value doubles as the "unknown checksum" sentinel used by the
// checksummed download strategy.
type SHA1Sum [sha1.Size]byte

// ParseSHA1 decodes a 40-character hex string.
func ParseSHA1(s string) (SHA1Sum, error) {
	var sum SHA1Sum
	if hex.DecodedLen(len(s)) != sha1.Size {
		return sum, fmt.Errorf("checksum must be %d hex characters, got %d", sha1.Size*2, len(s))
	}
	if _, err := hex.Decode(sum[:], []byte(s)); err != nil {
		return sum, fmt.Errorf("invalid checksum %q: %w", s, err)
	}
	return sum, nil
}

// SHA1Of hashes a byte slice.
func SHA1Of(data []byte) SHA1Sum {
	return sha1.Sum(data)
}

// SHA1OfReader hashes everything remaining in r.
func SHA1OfReader(r io.Reader) (SHA1Sum, error) {
	h := sha1.New()
	if _, err := io.Copy(h, r); err != nil {
		return SHA1Sum{}, fmt.Errorf("hashing failed: %w", err)
	}
	var sum SHA1Sum
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// IsZero reports whether the checksum is the all-zero sentinel.
func (s SHA1Sum) IsZero() bool { return s == SHA1Sum{} }

func (s SHA1Sum) String() string { return hex.EncodeToString(s[:]) }

func (s SHA1Sum) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SHA1Sum) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return fmt.Errorf("checksum must be a string: %w", err)
	}
	sum, err := ParseSHA1(hexStr)
	if err != nil {
		return err
	}
	*s = sum
	return nil
}
