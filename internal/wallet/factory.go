package wallet

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultMaxIndex bounds the counterfactual parameter search (inclusive).
// A search-space/latency tradeoff, not a correctness guarantee: wallets
// created outside the range are recovered by the historical recipient miner.
const DefaultMaxIndex = 5

// OwnerEncoding selects how a factory's prediction method expects the
// owner to be encoded
type OwnerEncoding string

const (
	// EncodingAddress passes the owner as a plain address parameter
	EncodingAddress OwnerEncoding = "address"
	// EncodingBytesPadded wraps the owner as one element of a bytes[] list,
	// left-padded to a 32-byte word
	EncodingBytesPadded OwnerEncoding = "bytes_padded"
	// EncodingBytesRaw wraps the owner as one element of a bytes[] list,
	// as the raw 20-byte address
	EncodingBytesRaw OwnerEncoding = "bytes_raw"
)

// FactoryDescriptor identifies one deterministic-deployment scheme the
// platform has used. The same factory contract can appear under more than
// one encoding; all combinations must be tried.
type FactoryDescriptor struct {
	Name     string
	Address  string
	Encoding OwnerEncoding
}

// DefaultDescriptors returns the factory schemes the platform has used over
// its lifetime: the beacon wallet factory under both of its owner encodings,
// plus the simple-account factory. Factories with no configured address are
// omitted.
func DefaultDescriptors(beaconFactoryAddress, simpleFactoryAddress string) []FactoryDescriptor {
	var descriptors []FactoryDescriptor
	if beaconFactoryAddress != "" {
		descriptors = append(descriptors,
			FactoryDescriptor{Name: "beacon-wallet", Address: beaconFactoryAddress, Encoding: EncodingBytesPadded},
			FactoryDescriptor{Name: "beacon-wallet-raw", Address: beaconFactoryAddress, Encoding: EncodingBytesRaw},
		)
	}
	if simpleFactoryAddress != "" {
		descriptors = append(descriptors,
			FactoryDescriptor{Name: "simple-account", Address: simpleFactoryAddress, Encoding: EncodingAddress},
		)
	}
	return descriptors
}

// PredictionCallData builds the calldata for the factory's address-prediction
// method for (owner, param). Pure function; the same inputs always produce
// the same calldata regardless of network conditions.
func (d FactoryDescriptor) PredictionCallData(ownerAddress string, param int64) ([]byte, error) {
	owner := common.HexToAddress(ownerAddress)

	switch d.Encoding {
	case EncodingAddress:
		// getAddress(address,uint256) returns (address)
		getAddressABI, err := abi.JSON(strings.NewReader(`[{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"salt","type":"uint256"}],"name":"getAddress","outputs":[{"name":"","type":"address"}],"payable":false,"stateMutability":"view","type":"function"}]`))
		if err != nil {
			return nil, fmt.Errorf("failed to parse ABI: %w", err)
		}
		return getAddressABI.Pack("getAddress", owner, big.NewInt(param))

	case EncodingBytesPadded, EncodingBytesRaw:
		// getAddress(bytes[],uint256) returns (address)
		getAddressABI, err := abi.JSON(strings.NewReader(`[{"constant":true,"inputs":[{"name":"owners","type":"bytes[]"},{"name":"nonce","type":"uint256"}],"name":"getAddress","outputs":[{"name":"","type":"address"}],"payable":false,"stateMutability":"view","type":"function"}]`))
		if err != nil {
			return nil, fmt.Errorf("failed to parse ABI: %w", err)
		}

		ownerBytes := owner.Bytes()
		if d.Encoding == EncodingBytesPadded {
			ownerBytes = common.LeftPadBytes(ownerBytes, 32)
		}
		return getAddressABI.Pack("getAddress", [][]byte{ownerBytes}, big.NewInt(param))

	default:
		return nil, fmt.Errorf("unknown owner encoding: %s", d.Encoding)
	}
}

// UnpackPredictedAddress decodes the address returned by a prediction call
func UnpackPredictedAddress(result []byte) (string, error) {
	if len(result) < 32 {
		return "", fmt.Errorf("prediction result too short: %d bytes", len(result))
	}
	return common.BytesToAddress(result[len(result)-20:]).Hex(), nil
}
