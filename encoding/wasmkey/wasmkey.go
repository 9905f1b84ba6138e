package wasmkey

import (
	"strconv"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/types/bech32"
)

// Store key prefixes used by the x/wasm module. The standard layout uses
// 0x02/0x03 with fixed 32-byte contract addresses; terra-classic chains use
// 0x04/0x05 with a one-byte address length prefix.
const (
	PrefixContractKey   byte = 0x02
	PrefixContractStore byte = 0x03

	PrefixContractKeyLegacy   byte = 0x04
	PrefixContractStoreLegacy byte = 0x05

	// ContractAddrLen is the address length of the standard layout.
	ContractAddrLen = 32
)

// Family classifies a wasm store key.
type Family int

const (
	// FamilyNone marks keys outside the wasm contract key families.
	FamilyNone Family = iota
	// FamilyContractInfo holds a contract's metadata (ContractInfo).
	FamilyContractInfo
	// FamilyContractState holds a contract's user storage.
	FamilyContractState
)

var ErrInvalidKey = errorsmod.Register("wasmkey", 2, "invalid wasm store key")

// Codec parses and constructs wasm store keys for one chain variant and
// renders contract addresses with the chain's bech32 prefix. All methods are
// pure.
type Codec struct {
	bech32Prefix   string
	lengthPrefixed bool
}

// NewCodec returns a codec for the standard key layout.
func NewCodec(bech32Prefix string) Codec {
	return Codec{bech32Prefix: bech32Prefix}
}

// NewLegacyCodec returns a codec for the terra-classic layout, where the
// contract address is preceded by a one-byte length.
func NewLegacyCodec(bech32Prefix string) Codec {
	return Codec{bech32Prefix: bech32Prefix, lengthPrefixed: true}
}

// TerraClassicChainID is the only chain using the length-prefixed layout.
const TerraClassicChainID = "columbus-5"

// CodecForChain selects the key layout for a chain id.
func CodecForChain(bech32Prefix, chainID string) Codec {
	if chainID == TerraClassicChainID {
		return NewLegacyCodec(bech32Prefix)
	}
	return NewCodec(bech32Prefix)
}

// LengthPrefixed reports whether the codec uses the terra-classic layout.
func (c Codec) LengthPrefixed() bool { return c.lengthPrefixed }

func (c Codec) family(prefix byte) Family {
	if c.lengthPrefixed {
		switch prefix {
		case PrefixContractKeyLegacy:
			return FamilyContractInfo
		case PrefixContractStoreLegacy:
			return FamilyContractState
		}
		return FamilyNone
	}
	switch prefix {
	case PrefixContractKey:
		return FamilyContractInfo
	case PrefixContractStore:
		return FamilyContractState
	}
	return FamilyNone
}

// Decode splits a raw store key into its family, contract address bytes and
// the remaining user key bytes (empty for contract-info keys). Keys outside
// both families return FamilyNone with no error; malformed keys within a
// family return ErrInvalidKey.
func (c Codec) Decode(key []byte) (Family, []byte, []byte, error) {
	if len(key) == 0 {
		return FamilyNone, nil, nil, nil
	}

	family := c.family(key[0])
	if family == FamilyNone {
		return FamilyNone, nil, nil, nil
	}

	addrStart := 1
	addrLen := ContractAddrLen
	if c.lengthPrefixed {
		if len(key) < 2 {
			return family, nil, nil, errorsmod.Wrap(ErrInvalidKey, "missing address length")
		}
		addrLen = int(key[1])
		addrStart = 2
	}

	if addrLen == 0 || len(key) < addrStart+addrLen {
		return family, nil, nil, errorsmod.Wrapf(ErrInvalidKey, "key too short for %d-byte address", addrLen)
	}

	addr := key[addrStart : addrStart+addrLen]
	remainder := key[addrStart+addrLen:]

	if family == FamilyContractInfo && len(remainder) > 0 {
		return family, nil, nil, errorsmod.Wrap(ErrInvalidKey, "trailing bytes after contract-info address")
	}

	return family, addr, remainder, nil
}

// EncodeContractKey builds a contract-info key for the given address bytes.
func (c Codec) EncodeContractKey(addr []byte) []byte {
	if c.lengthPrefixed {
		out := make([]byte, 0, 2+len(addr))
		out = append(out, PrefixContractKeyLegacy, byte(len(addr)))
		return append(out, addr...)
	}
	out := make([]byte, 0, 1+len(addr))
	out = append(out, PrefixContractKey)
	return append(out, addr...)
}

// EncodeContractStoreKey builds a contract-state key for the given address
// and user key bytes.
func (c Codec) EncodeContractStoreKey(addr, userKey []byte) []byte {
	if c.lengthPrefixed {
		out := make([]byte, 0, 2+len(addr)+len(userKey))
		out = append(out, PrefixContractStoreLegacy, byte(len(addr)))
		out = append(out, addr...)
		return append(out, userKey...)
	}
	out := make([]byte, 0, 1+len(addr)+len(userKey))
	out = append(out, PrefixContractStore)
	out = append(out, addr...)
	return append(out, userKey...)
}

// HumanAddress renders contract address bytes with the chain's bech32 prefix.
func (c Codec) HumanAddress(addr []byte) (string, error) {
	return bech32.ConvertAndEncode(c.bech32Prefix, addr)
}

// CanonicalAddress decodes a bech32 contract address back to bytes, checking
// the prefix against the codec's.
func (c Codec) CanonicalAddress(text string) ([]byte, error) {
	hrp, bz, err := bech32.DecodeAndConvert(text)
	if err != nil {
		return nil, err
	}
	if hrp != c.bech32Prefix {
		return nil, errorsmod.Wrapf(ErrInvalidKey, "hrp does not match bech32 prefix: expected '%s' got '%s'", c.bech32Prefix, hrp)
	}
	return bz, nil
}

// CanonicalKey renders user key bytes as a comma-joined list of decimal byte
// values, the stable string form used for persisted state keys.
func CanonicalKey(key []byte) string {
	if len(key) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, b := range key {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(b)))
	}
	return sb.String()
}

// ParseCanonicalKey is the inverse of CanonicalKey.
func ParseCanonicalKey(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	parts := strings.Split(key, ",")
	out := make([]byte, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return nil, errorsmod.Wrapf(ErrInvalidKey, "canonical key segment %q: %v", p, err)
		}
		out[i] = byte(v)
	}
	return out, nil
}
