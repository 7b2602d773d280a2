// Package json is the JSON codec used across the gateway. It is backed by sonic
// and mirrors the subset of encoding/json the rest of the code needs.
package json // nolint: revive

import (
	stdjson "encoding/json"

	sonicjson "github.com/bytedance/sonic"
)

var (
	// Unmarshal is equivalent to encoding/json.Unmarshal.
	Unmarshal = sonicjson.ConfigDefault.Unmarshal
	// Marshal is equivalent to encoding/json.Marshal.
	Marshal = sonicjson.ConfigDefault.Marshal
	// NewEncoder is equivalent to encoding/json.NewEncoder.
	NewEncoder = sonicjson.ConfigDefault.NewEncoder
)

// RawMessage is encoding/json.RawMessage. Decoded values own their bytes.
type RawMessage = stdjson.RawMessage
