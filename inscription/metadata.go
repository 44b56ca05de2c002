package inscription

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/bitfsorg/ordinals-go/tx"
)

const (
	// MapPrefix is the MAP protocol address, pushed as its ASCII bytes.
	MapPrefix = "1PuQa7K62MiKCtssSLKy1kh56WWU7MtUR5"

	// MapCmdSet is the only MAP command emitted.
	MapCmdSet = "SET"

	// reservedKeyCmd is never written as a key/value pair.
	reservedKeyCmd = "cmd"
)

var (
	// ErrMetadataKeys indicates MAP metadata lacks app or type.
	ErrMetadataKeys = fmt.Errorf("%w: MAP.app and MAP.type are required", tx.ErrValidation)

	// ErrNoMetadata indicates the script carries no MAP SET section.
	ErrNoMetadata = errors.New("inscription: no MAP metadata")
)

// Pair is one MAP key/value.
type Pair struct {
	Key   string
	Value string
}

// Metadata is a MAP key/value annotation, written in the order given. It
// must contain "app" and "type" or be empty.
type Metadata []Pair

// Get returns the value for key, or "" when absent.
func (m Metadata) Get(key string) string {
	for _, p := range m {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// Set replaces the value of an existing key in place or appends a new pair.
func (m *Metadata) Set(key, value string) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, Pair{Key: key, Value: value})
}

// Validate checks the required keys. An empty Metadata is valid.
func (m Metadata) Validate() error {
	if len(m) == 0 {
		return nil
	}
	if m.Get("app") == "" || m.Get("type") == "" {
		return ErrMetadataKeys
	}
	return nil
}

// Pairs returns the pairs to emit: caller order with "cmd" omitted.
func (m Metadata) Pairs() []Pair {
	if len(m) == 0 {
		return nil
	}
	out := make([]Pair, 0, len(m))
	for _, p := range m {
		if p.Key == reservedKeyCmd {
			continue
		}
		out = append(out, p)
	}
	return out
}

// UnmarshalJSON reads a JSON object keeping document order. String values
// are taken as is; any other value is kept as compact JSON text.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: MAP metadata must be a JSON object", tx.ErrValidation)
	}
	out := Metadata{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		value, err := metadataValue(raw)
		if err != nil {
			return fmt.Errorf("%w: MAP.%s: %w", tx.ErrValidation, key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

func metadataValue(raw json.RawMessage) (string, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// AppendMetadata writes OP_RETURN <MAP prefix> "SET" k1 v1 k2 v2 ... to s.
// Empty metadata appends nothing.
func AppendMetadata(s *script.Script, m Metadata) error {
	if len(m) == 0 {
		return nil
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if err := s.AppendOpcodes(script.OpRETURN); err != nil {
		return fmt.Errorf("%w: MAP: %w", tx.ErrScript, err)
	}
	if err := s.AppendPushData([]byte(MapPrefix)); err != nil {
		return fmt.Errorf("%w: MAP prefix: %w", tx.ErrScript, err)
	}
	if err := s.AppendPushData([]byte(MapCmdSet)); err != nil {
		return fmt.Errorf("%w: MAP command: %w", tx.ErrScript, err)
	}
	for _, p := range m.Pairs() {
		if err := s.AppendPushData([]byte(p.Key)); err != nil {
			return fmt.Errorf("%w: MAP key %q: %w", tx.ErrScript, p.Key, err)
		}
		if err := s.AppendPushData([]byte(p.Value)); err != nil {
			return fmt.Errorf("%w: MAP value for %q: %w", tx.ErrScript, p.Key, err)
		}
	}
	return nil
}

// ParseMetadata extracts the MAP SET pairs that follow the first OP_RETURN
// in s.
func ParseMetadata(s *script.Script) (Metadata, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: script", tx.ErrNilParam)
	}
	pos := 0
	for pos < len(*s) {
		op, err := s.ReadOp(&pos)
		if err != nil {
			return nil, ErrNoMetadata
		}
		if op.Op == script.OpRETURN {
			break
		}
	}
	if pos >= len(*s) {
		return nil, ErrNoMetadata
	}

	prefix, err := s.ReadOp(&pos)
	if err != nil || string(prefix.Data) != MapPrefix {
		return nil, ErrNoMetadata
	}
	cmd, err := s.ReadOp(&pos)
	if err != nil || string(cmd.Data) != MapCmdSet {
		return nil, ErrNoMetadata
	}

	var m Metadata
	for pos < len(*s) {
		k, err := s.ReadOp(&pos)
		if err != nil {
			return nil, fmt.Errorf("%w: MAP key: %w", tx.ErrScript, err)
		}
		v, err := s.ReadOp(&pos)
		if err != nil {
			return nil, fmt.Errorf("%w: MAP value for %q: %w", tx.ErrScript, k.Data, err)
		}
		m.Set(string(k.Data), string(v.Data))
	}
	return m, nil
}
