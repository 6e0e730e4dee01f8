package watchlist

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/stockcast/internal/contracts"
)

// Load reads and validates a watchlist file. Unknown keys are rejected.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, normalizes symbols and validates the result
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode watchlist: %w", err)
	}

	for i, s := range f.Symbols {
		f.Symbols[i] = contracts.NormalizeSymbol(s)
	}

	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Hash fingerprints the watchlist so a reload can be detected in logs
func Hash(f *File) (string, error) {
	jsonBytes, err := json.Marshal(f)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
