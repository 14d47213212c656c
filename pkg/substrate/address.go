// ABOUTME: Content addresses and agent keys for the local-node substrate
// ABOUTME: BLAKE3 keyed hashing with one domain key per kind of addressed object

package substrate

import (
	"encoding/base64"
	"fmt"

	"github.com/zeebo/blake3"
)

// AddressSize is the byte length of every address and agent key.
const AddressSize = 32

// Address is the content address of an entry, action, link or path
// node. Its text form is "u" followed by unpadded base64url.
type Address [AddressSize]byte

// ParseAddress parses the text form produced by Address.String.
func ParseAddress(s string) (Address, error) {
	var a Address
	if len(s) < 2 || s[0] != 'u' {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	raw, err := base64.RawURLEncoding.DecodeString(s[1:])
	if err != nil || len(raw) != AddressSize {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	copy(a[:], raw)
	return a, nil
}

// String returns the text form of the address.
func (a Address) String() string {
	return "u" + base64.RawURLEncoding.EncodeToString(a[:])
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// AgentKey identifies the author of actions on a node. Steward and
// editor lists carry agent keys.
type AgentKey [AddressSize]byte

// ParseAgentKey parses an agent key. Any malformed input is reported
// as ErrAgentTag.
func ParseAgentKey(s string) (AgentKey, error) {
	a, err := ParseAddress(s)
	if err != nil {
		return AgentKey{}, fmt.Errorf("%w: %q", ErrAgentTag, s)
	}
	return AgentKey(a), nil
}

func (k AgentKey) String() string {
	return Address(k).String()
}

// MarshalText implements encoding.TextMarshaler.
func (k AgentKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *AgentKey) UnmarshalText(text []byte) error {
	parsed, err := ParseAgentKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// domainKey is a BLAKE3 key used for domain separation: identical
// bytes hashed in different domains never share an address.
type domainKey [32]byte

var (
	entryDomainKey = domainKey{
		'h', 'o', 'w', 'c', 'a', 't', 'a', 'l', 'o', 'g', '.', 'e', 'n', 't', 'r', 'y',
	}
	actionDomainKey = domainKey{
		'h', 'o', 'w', 'c', 'a', 't', 'a', 'l', 'o', 'g', '.', 'a', 'c', 't', 'i', 'o', 'n',
	}
	linkDomainKey = domainKey{
		'h', 'o', 'w', 'c', 'a', 't', 'a', 'l', 'o', 'g', '.', 'l', 'i', 'n', 'k',
	}
	pathDomainKey = domainKey{
		'h', 'o', 'w', 'c', 'a', 't', 'a', 'l', 'o', 'g', '.', 'p', 'a', 't', 'h',
	}
	agentDomainKey = domainKey{
		'h', 'o', 'w', 'c', 'a', 't', 'a', 'l', 'o', 'g', '.', 'a', 'g', 'e', 'n', 't',
	}
)

func keyedHash(key domainKey, parts ...[]byte) Address {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("substrate: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	for _, part := range parts {
		hasher.Write(part)
	}
	var out Address
	copy(out[:], hasher.Sum(nil))
	return out
}
