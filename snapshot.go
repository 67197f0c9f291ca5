package hxwire

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pthm/hxwire/lib/encoding"
)

// Snapshot is the serialized state of one component instance.
//
// Memo carries identity and request metadata, Data carries the public
// properties in wire form, and Checksum authenticates both. A snapshot
// whose checksum does not match its content is never hydrated.
type Snapshot struct {
	Memo     Memo           `json:"memo"`
	Data     map[string]any `json:"data"`
	Checksum string         `json:"checksum"`
}

// Memo holds everything about a component that is not its public state.
type Memo struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Path     string            `json:"path"`
	Method   string            `json:"method"`
	Children []ChildRef        `json:"children"`
	Errors   map[string]string `json:"errors"`
	Locale   string            `json:"locale"`
}

// ChildRef links a parent to a child mounted during its render. Key is
// the stable key the child was mounted under and Tag is the root element
// name used for the placeholder when the child is not re-rendered.
type ChildRef struct {
	ID  string `json:"id"`
	Tag string `json:"tag"`
	Key string `json:"key"`
}

// SnapshotCodec builds and parses snapshots.
type SnapshotCodec struct {
	codec    *encoding.Codec
	synth    *Synthesizers
	registry *Registry
	seal     bool
}

// NewSnapshotCodec creates a codec. With seal set, Marshal produces an
// encrypted payload and Decode only accepts such payloads.
func NewSnapshotCodec(codec *encoding.Codec, synth *Synthesizers, reg *Registry, seal bool) *SnapshotCodec {
	return &SnapshotCodec{
		codec:    codec,
		synth:    synth,
		registry: reg,
		seal:     seal,
	}
}

// Encode captures the public state of c under memo and signs it.
func (sc *SnapshotCodec) Encode(c Component, memo Memo) (*Snapshot, error) {
	v := structOf(c)
	data := make(map[string]any)
	for _, p := range propertiesOf(v.Type()) {
		raw, err := sc.synth.Dehydrate(v.Field(p.index))
		if err != nil {
			return nil, fmt.Errorf("hxwire: dehydrate %s.%s: %w", c.base().name, p.name, err)
		}
		data[p.name] = raw
	}

	// Normalize to the shape Decode produces so a fresh snapshot and a
	// decoded one compare equal.
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("hxwire: encode %s: %w", c.base().name, err)
	}
	if data, err = decodeData(encoded); err != nil {
		return nil, err
	}

	b := c.base()
	memo.ID = b.id
	memo.Name = b.name
	if memo.Children == nil {
		memo.Children = []ChildRef{}
	}
	if memo.Errors == nil {
		memo.Errors = map[string]string{}
	}

	snap := &Snapshot{Memo: memo, Data: data}
	sum, err := sc.codec.Checksum(map[string]any{"memo": snap.Memo, "data": snap.Data})
	if err != nil {
		return nil, fmt.Errorf("hxwire: checksum: %w", err)
	}
	snap.Checksum = sum
	return snap, nil
}

// Marshal renders snap to its transport form.
func (sc *SnapshotCodec) Marshal(snap *Snapshot) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	if !sc.seal {
		return raw, nil
	}
	sealed, err := sc.codec.Seal(raw)
	if err != nil {
		return nil, err
	}
	return []byte(sealed), nil
}

// Decode parses a transport payload and verifies its checksum against the
// memo and data exactly as received. Any parse failure or mismatch is an
// ErrTamperedSnapshot.
func (sc *SnapshotCodec) Decode(raw []byte) (*Snapshot, error) {
	raw = bytes.TrimSpace(raw)
	if sc.seal {
		plain, err := sc.codec.Open(string(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTamperedSnapshot, err)
		}
		raw = plain
	}

	var parts map[string]json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTamperedSnapshot, err)
	}
	memoRaw, hasMemo := parts["memo"]
	dataRaw, hasData := parts["data"]
	sumRaw, hasSum := parts["checksum"]
	if !hasMemo || !hasData || !hasSum {
		return nil, fmt.Errorf("%w: incomplete snapshot", ErrTamperedSnapshot)
	}

	var sum string
	if err := json.Unmarshal(sumRaw, &sum); err != nil {
		return nil, fmt.Errorf("%w: checksum: %v", ErrTamperedSnapshot, err)
	}
	content := map[string]json.RawMessage{"memo": memoRaw, "data": dataRaw}
	if err := sc.codec.Verify(content, sum); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTamperedSnapshot, err)
	}

	snap := &Snapshot{Checksum: sum}
	if err := json.Unmarshal(memoRaw, &snap.Memo); err != nil {
		return nil, fmt.Errorf("%w: memo: %v", ErrTamperedSnapshot, err)
	}
	data, err := decodeData(dataRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: data: %v", ErrTamperedSnapshot, err)
	}
	snap.Data = data
	if snap.Memo.Name == "" || snap.Memo.ID == "" {
		return nil, fmt.Errorf("%w: memo lacks identity", ErrTamperedSnapshot)
	}
	if snap.Memo.Children == nil {
		snap.Memo.Children = []ChildRef{}
	}
	if snap.Memo.Errors == nil {
		snap.Memo.Errors = map[string]string{}
	}
	return snap, nil
}

// decodeData reads a data object keeping numbers as json.Number, so integers
// outside the float64 range survive until a synthesizer coerces them.
func decodeData(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

// HydrateInstance reconstructs the component a snapshot describes. It
// resolves memo.name, constructs the instance with memo.id and assigns
// every data entry through the synthesizer chain. Mount logic never runs.
func (sc *SnapshotCodec) HydrateInstance(snap *Snapshot) (Component, error) {
	c, err := sc.registry.Instantiate(snap.Memo.Name, snap.Memo.ID)
	if err != nil {
		return nil, err
	}

	v := structOf(c)
	for key, raw := range snap.Data {
		p, ok := lookupProperty(v.Type(), key)
		if !ok {
			return nil, hydrationErrorf("%s has no property %q", snap.Memo.Name, key)
		}
		val, err := sc.synth.Hydrate(p.typ, raw)
		if err != nil {
			return nil, fmt.Errorf("hxwire: hydrate %s.%s: %w", snap.Memo.Name, key, err)
		}
		v.Field(p.index).Set(val)
	}
	c.base().restoreErrors(snap.Memo.Errors)
	return c, nil
}
