package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

// MarshalMap canonicalizes m and encodes it with two-space indentation
// and a trailing newline. Equal maps always encode to equal bytes.
func MarshalMap(m *wiring.APIWiringMap) ([]byte, error) {
	m.Canonicalize()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding wiring map: %w", err)
	}
	return append(data, '\n'), nil
}

// UnmarshalMap decodes a wiring map
func UnmarshalMap(data []byte) (*wiring.APIWiringMap, error) {
	var m wiring.APIWiringMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding wiring map: %w", err)
	}
	m.Canonicalize()
	return &m, nil
}

// ReadMap loads a wiring map from disk
func ReadMap(path string) (*wiring.APIWiringMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalMap(data)
}
