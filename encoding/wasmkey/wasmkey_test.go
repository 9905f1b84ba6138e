package wasmkey

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	addr32 = bytes.Repeat([]byte{0xAB}, 32)
	addr20 = bytes.Repeat([]byte{0xCD}, 20)
)

func TestDecodeStandard(t *testing.T) {
	c := NewCodec("juno")

	family, addr, remainder, err := c.Decode(c.EncodeContractKey(addr32))
	require.NoError(t, err)
	require.Equal(t, FamilyContractInfo, family)
	require.Equal(t, addr32, addr)
	require.Empty(t, remainder)

	userKey := []byte{1, 2, 3}
	family, addr, remainder, err = c.Decode(c.EncodeContractStoreKey(addr32, userKey))
	require.NoError(t, err)
	require.Equal(t, FamilyContractState, family)
	require.Equal(t, addr32, addr)
	require.Equal(t, userKey, remainder)
}

func TestDecodeLegacy(t *testing.T) {
	c := NewLegacyCodec("terra")

	// 0x05 || len || addr || userKey with a 20-byte address
	key := append([]byte{PrefixContractStoreLegacy, 0x14}, addr20...)
	key = append(key, 9, 9)

	family, addr, remainder, err := c.Decode(key)
	require.NoError(t, err)
	require.Equal(t, FamilyContractState, family)
	require.Equal(t, addr20, addr)
	require.Equal(t, []byte{9, 9}, remainder)
	require.Equal(t, "9,9", CanonicalKey(remainder))
}

func TestDecodeRoundTrip(t *testing.T) {
	userKey := []byte("contract_info")

	for name, tc := range map[string]struct {
		codec Codec
		addr  []byte
	}{
		"standard":      {NewCodec("osmo"), addr32},
		"terra-classic": {NewLegacyCodec("terra"), addr20},
	} {
		t.Run(name, func(t *testing.T) {
			family, addr, remainder, err := tc.codec.Decode(tc.codec.EncodeContractStoreKey(tc.addr, userKey))
			require.NoError(t, err)
			require.Equal(t, FamilyContractState, family)
			require.Equal(t, tc.addr, addr)
			require.Equal(t, userKey, remainder)

			family, addr, remainder, err = tc.codec.Decode(tc.codec.EncodeContractKey(tc.addr))
			require.NoError(t, err)
			require.Equal(t, FamilyContractInfo, family)
			require.Equal(t, tc.addr, addr)
			require.Empty(t, remainder)
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	c := NewCodec("juno")

	// unrelated prefix is not an error, just not a wasm key
	family, _, _, err := c.Decode([]byte{0x01, 0xFF})
	require.NoError(t, err)
	require.Equal(t, FamilyNone, family)

	family, _, _, err = c.Decode(nil)
	require.NoError(t, err)
	require.Equal(t, FamilyNone, family)

	// short address
	_, _, _, err = c.Decode(append([]byte{PrefixContractKey}, addr32[:16]...))
	require.ErrorIs(t, err, ErrInvalidKey)

	// trailing bytes after a contract-info address
	_, _, _, err = c.Decode(append(c.EncodeContractKey(addr32), 0x00))
	require.ErrorIs(t, err, ErrInvalidKey)

	// legacy key with a truncated address
	legacy := NewLegacyCodec("terra")
	_, _, _, err = legacy.Decode([]byte{PrefixContractKeyLegacy, 0x14, 0x01})
	require.ErrorIs(t, err, ErrInvalidKey)

	_, _, _, err = legacy.Decode([]byte{PrefixContractKeyLegacy})
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestHumanAddressRoundTrip(t *testing.T) {
	c := NewCodec("juno")

	text, err := c.HumanAddress(addr32)
	require.NoError(t, err)
	require.Contains(t, text, "juno1")

	bz, err := c.CanonicalAddress(text)
	require.NoError(t, err)
	require.Equal(t, addr32, bz)

	other := NewCodec("osmo")
	_, err = other.CanonicalAddress(text)
	require.Error(t, err)
}

func TestCanonicalKey(t *testing.T) {
	require.Equal(t, "99,111,110,116,114,97,99,116,95,105,110,102,111", CanonicalKey([]byte("contract_info")))
	require.Equal(t, "", CanonicalKey(nil))

	bz, err := ParseCanonicalKey("99,111,110,116,114,97,99,116,95,105,110,102,111")
	require.NoError(t, err)
	require.Equal(t, []byte("contract_info"), bz)

	bz, err = ParseCanonicalKey("")
	require.NoError(t, err)
	require.Nil(t, bz)

	_, err = ParseCanonicalKey("256")
	require.Error(t, err)
	_, err = ParseCanonicalKey("a,b")
	require.Error(t, err)
}
