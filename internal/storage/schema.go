package storage

import (
	"encoding/json"
	"fmt"
)

// currentBlobSchemaVersion is the schema_version stamped into every
// versioned JSON blob (chromosome_genes.parameters, populations.
// configuration) written by this binary.
const currentBlobSchemaVersion = 1

// versionedBlob is the JSON envelope wrapping a versioned blob: a leading
// schema_version field followed by the payload itself, per spec 9's
// schema-version upgrade design.
type versionedBlob struct {
	SchemaVersion int             `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// encodeBlob wraps v in a schema_version-tagged JSON envelope.
func encodeBlob(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal blob payload: %w", err)
	}
	return json.Marshal(versionedBlob{SchemaVersion: currentBlobSchemaVersion, Payload: payload})
}

// decodeBlob unwraps a schema_version-tagged JSON envelope into out,
// rejecting a schema_version newer than this binary understands and
// upgrading anything older in place before decoding. Today that upgrade
// path is a no-op: currentBlobSchemaVersion is the only version that has
// ever shipped. The switch below is where a future version bump adds the
// migration step for payloads written by an older binary.
func decodeBlob(data []byte, out any) error {
	var blob versionedBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("unmarshal blob envelope: %w", err)
	}
	if blob.SchemaVersion > currentBlobSchemaVersion {
		return fmt.Errorf("blob schema_version %d is newer than this binary's %d",
			blob.SchemaVersion, currentBlobSchemaVersion)
	}

	payload := blob.Payload
	switch blob.SchemaVersion {
	case currentBlobSchemaVersion:
		// already current.
	default:
		// upgrade payload from blob.SchemaVersion to currentBlobSchemaVersion here.
	}
	return json.Unmarshal(payload, out)
}
