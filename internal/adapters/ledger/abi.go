package ledger

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"

	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/ports"
)

// Minimal ABI codec for the call set this client needs: the insurance
// contract's getters and mutations plus the ERC-20 approve/allowance/
// balanceOf trio. Static arguments are 32-byte words; the container id is
// the only dynamic value and uses standard head/tail offset encoding.

const wordSize = 32

var (
	selPremiumAmount   = selector("premiumAmount()")
	selPayoutPerDay    = selector("payoutPerDay()")
	selMaxPayoutDays   = selector("maxPayoutDays()")
	selGetPolicy       = selector("getPolicy(uint256)")
	selClaimableDays   = selector("claimableDays(uint256)")
	selPoliciesByOwner = selector("policiesByOwner(address)")
	selBuyPolicy       = selector("buyPolicy(string,uint256)")
	selClaim           = selector("claim(uint256)")

	selApprove   = selector("approve(address,uint256)")
	selAllowance = selector("allowance(address,address)")
	selBalanceOf = selector("balanceOf(address)")
)

func selector(signature string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return h.Sum(nil)[:4]
}

func wordUint(v *big.Int) []byte {
	out := make([]byte, wordSize)
	if v != nil {
		v.FillBytes(out)
	}
	return out
}

func wordAddress(a domain.Address) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(a.String()), "0x"))
	if err != nil || len(raw) != 20 {
		return nil, fmt.Errorf("encode address %q: not 20 bytes of hex", a)
	}
	out := make([]byte, wordSize)
	copy(out[wordSize-20:], raw)
	return out, nil
}

func encodeCall(sel []byte, words ...[]byte) []byte {
	out := make([]byte, 0, len(sel)+len(words)*wordSize)
	out = append(out, sel...)
	for _, w := range words {
		out = append(out, w...)
	}
	return out
}

// encodeBuyPolicy encodes buyPolicy(string containerId, uint256 expected).
// The string head word points past the two-word head to its length+data.
func encodeBuyPolicy(containerID string, expectedArrival *big.Int) []byte {
	head := [][]byte{
		wordUint(big.NewInt(2 * wordSize)), // offset of the string tail
		wordUint(expectedArrival),
	}
	data := encodeCall(selBuyPolicy, head...)
	data = append(data, wordUint(big.NewInt(int64(len(containerID))))...)
	padded := make([]byte, paddedLen(len(containerID)))
	copy(padded, containerID)
	return append(data, padded...)
}

func paddedLen(n int) int {
	if n%wordSize == 0 {
		return n
	}
	return n + wordSize - n%wordSize
}

// --- result decoding ---

func resultWords(data []byte) ([][]byte, error) {
	if len(data)%wordSize != 0 {
		return nil, fmt.Errorf("decode result: length %d is not word-aligned", len(data))
	}
	words := make([][]byte, 0, len(data)/wordSize)
	for i := 0; i < len(data); i += wordSize {
		words = append(words, data[i:i+wordSize])
	}
	return words, nil
}

func decodeUint(data []byte) (*big.Int, error) {
	if len(data) < wordSize {
		return nil, errors.New("decode uint256: result shorter than one word")
	}
	return new(big.Int).SetBytes(data[:wordSize]), nil
}

func decodeAddressWord(w []byte) domain.Address {
	return domain.Address("0x" + hex.EncodeToString(w[wordSize-20:]))
}

// decodeUintArray decodes a dynamic uint256[] return value.
func decodeUintArray(data []byte) ([]*big.Int, error) {
	words, err := resultWords(data)
	if err != nil {
		return nil, err
	}
	if len(words) < 2 {
		return nil, errors.New("decode uint256[]: missing offset or length")
	}
	offset := new(big.Int).SetBytes(words[0]).Uint64()
	if offset%wordSize != 0 || int(offset/wordSize) >= len(words) {
		return nil, fmt.Errorf("decode uint256[]: bad offset %d", offset)
	}
	lenIdx := int(offset / wordSize)
	n := int(new(big.Int).SetBytes(words[lenIdx]).Uint64())
	if lenIdx+1+n > len(words) {
		return nil, fmt.Errorf("decode uint256[]: declared %d elements, data too short", n)
	}
	out := make([]*big.Int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, new(big.Int).SetBytes(words[lenIdx+1+i]))
	}
	return out, nil
}

// decodeRawPolicy decodes the getPolicy tuple:
// (address insured, string containerId, uint256 expectedArrival,
//  uint256 actualArrival, uint256 claimedDays, uint256 status).
func decodeRawPolicy(data []byte) (ports.RawPolicy, error) {
	words, err := resultWords(data)
	if err != nil {
		return ports.RawPolicy{}, err
	}
	if len(words) < 6 {
		return ports.RawPolicy{}, fmt.Errorf("decode policy: %d words, want at least 6", len(words))
	}

	strOffset := new(big.Int).SetBytes(words[1]).Uint64()
	if strOffset%wordSize != 0 || int(strOffset/wordSize) >= len(words) {
		return ports.RawPolicy{}, fmt.Errorf("decode policy: bad string offset %d", strOffset)
	}
	lenIdx := int(strOffset / wordSize)
	strLen := int(new(big.Int).SetBytes(words[lenIdx]).Uint64())
	tail := data[(lenIdx+1)*wordSize:]
	if strLen > len(tail) {
		return ports.RawPolicy{}, fmt.Errorf("decode policy: container id length %d exceeds data", strLen)
	}

	return ports.RawPolicy{
		Insured:         decodeAddressWord(words[0]),
		ContainerID:     string(tail[:strLen]),
		ExpectedArrival: new(big.Int).SetBytes(words[2]),
		ActualArrival:   new(big.Int).SetBytes(words[3]),
		ClaimedDays:     new(big.Int).SetBytes(words[4]),
		Status:          new(big.Int).SetBytes(words[5]),
	}, nil
}
