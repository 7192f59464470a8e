package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeBlob_RoundTrips(t *testing.T) {
	in := map[string]float64{"period": 14, "overbought": 70}
	blob, err := encodeBlob(in)
	require.NoError(t, err)

	var envelope versionedBlob
	require.NoError(t, json.Unmarshal(blob, &envelope))
	assert.Equal(t, currentBlobSchemaVersion, envelope.SchemaVersion)

	var out map[string]float64
	require.NoError(t, decodeBlob(blob, &out))
	assert.Equal(t, in, out)
}

func TestDecodeBlob_RejectsNewerSchemaVersion(t *testing.T) {
	future, err := json.Marshal(versionedBlob{
		SchemaVersion: currentBlobSchemaVersion + 1,
		Payload:       json.RawMessage(`{"period":14}`),
	})
	require.NoError(t, err)

	var out map[string]float64
	err = decodeBlob(future, &out)
	assert.Error(t, err)
}
