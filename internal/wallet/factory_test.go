package wallet

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOwner = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func TestDefaultDescriptors(t *testing.T) {
	descriptors := DefaultDescriptors(
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
	)
	require.Len(t, descriptors, 3)
	assert.Equal(t, EncodingBytesPadded, descriptors[0].Encoding)
	assert.Equal(t, EncodingBytesRaw, descriptors[1].Encoding)
	assert.Equal(t, EncodingAddress, descriptors[2].Encoding)

	// Both beacon descriptors target the same factory contract
	assert.Equal(t, descriptors[0].Address, descriptors[1].Address)
}

func TestDefaultDescriptors_SkipsUnconfigured(t *testing.T) {
	descriptors := DefaultDescriptors("", "0x2222222222222222222222222222222222222222")
	require.Len(t, descriptors, 1)
	assert.Equal(t, EncodingAddress, descriptors[0].Encoding)

	assert.Empty(t, DefaultDescriptors("", ""))
}

func TestPredictionCallData_Deterministic(t *testing.T) {
	for _, encoding := range []OwnerEncoding{EncodingAddress, EncodingBytesPadded, EncodingBytesRaw} {
		descriptor := FactoryDescriptor{
			Name:     "factory",
			Address:  "0x1111111111111111111111111111111111111111",
			Encoding: encoding,
		}

		first, err := descriptor.PredictionCallData(testOwner, 3)
		require.NoError(t, err)
		second, err := descriptor.PredictionCallData(testOwner, 3)
		require.NoError(t, err)

		assert.Equal(t, first, second, "encoding %s must be deterministic", encoding)
	}
}

func TestPredictionCallData_EncodingsDiffer(t *testing.T) {
	padded := FactoryDescriptor{Encoding: EncodingBytesPadded}
	raw := FactoryDescriptor{Encoding: EncodingBytesRaw}
	plain := FactoryDescriptor{Encoding: EncodingAddress}

	paddedData, err := padded.PredictionCallData(testOwner, 0)
	require.NoError(t, err)
	rawData, err := raw.PredictionCallData(testOwner, 0)
	require.NoError(t, err)
	plainData, err := plain.PredictionCallData(testOwner, 0)
	require.NoError(t, err)

	// All three encodings produce distinct calldata for the same owner
	assert.NotEqual(t, paddedData, rawData)
	assert.NotEqual(t, paddedData, plainData)
	assert.NotEqual(t, rawData, plainData)
}

func TestPredictionCallData_ParamChangesCalldata(t *testing.T) {
	descriptor := FactoryDescriptor{Encoding: EncodingAddress}

	zero, err := descriptor.PredictionCallData(testOwner, 0)
	require.NoError(t, err)
	one, err := descriptor.PredictionCallData(testOwner, 1)
	require.NoError(t, err)

	assert.NotEqual(t, zero, one)
}

func TestPredictionCallData_UnknownEncoding(t *testing.T) {
	descriptor := FactoryDescriptor{Encoding: OwnerEncoding("bogus")}
	_, err := descriptor.PredictionCallData(testOwner, 0)
	assert.Error(t, err)
}

func TestUnpackPredictedAddress(t *testing.T) {
	predicted := common.HexToAddress("0x9999999999999999999999999999999999999999")

	address, err := UnpackPredictedAddress(common.LeftPadBytes(predicted.Bytes(), 32))
	require.NoError(t, err)
	assert.Equal(t, predicted.Hex(), address)

	_, err = UnpackPredictedAddress([]byte{0x01, 0x02})
	assert.Error(t, err)
}
