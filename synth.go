package hxwire

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"sync"
	"time"
)

// Wire keys of a synthesized value: {"s": tag, "value": payload, "m": meta}.
const (
	synthTagKey   = "s"
	synthValueKey = "value"
	synthMetaKey  = "m"
)

// Synthesizer converts values of the types it claims to and from a tagged
// wire form.
//
// Match reports whether the synthesizer owns a Go type; MatchTag reports
// whether it can read a payload carrying tag. Dehydrate and Hydrate receive
// the owning Synthesizers so nested values go through the same chain.
type Synthesizer interface {
	Key() string
	Match(t reflect.Type) bool
	MatchTag(tag string) bool
	Dehydrate(s *Synthesizers, v reflect.Value) (payload any, meta map[string]any, err error)
	Hydrate(s *Synthesizers, t reflect.Type, payload any, meta map[string]any) (reflect.Value, error)
}

// Wireable is implemented by types that control their own wire form.
// FromWire is called on a pointer to a zero value. Numbers inside a
// payload read from a snapshot arrive as json.Number.
type Wireable interface {
	ToWire() (any, error)
	FromWire(payload any) error
}

var (
	componentType = reflect.TypeOf((*Component)(nil)).Elem()
	wireableType  = reflect.TypeOf((*Wireable)(nil)).Elem()
	timeType      = reflect.TypeOf(time.Time{})
	anySliceType  = reflect.TypeOf([]any(nil))
	anyMapType    = reflect.TypeOf(map[string]any(nil))
)

// Synthesizers is the ordered synthesizer chain. Custom synthesizers are
// consulted before the built-ins, each group in registration order; the
// first match wins.
type Synthesizers struct {
	mu       sync.RWMutex
	custom   []Synthesizer
	builtin  []Synthesizer
	registry *Registry
}

// NewSynthesizers creates the built-in chain. reg resolves component
// references.
func NewSynthesizers(reg *Registry) *Synthesizers {
	return &Synthesizers{
		builtin: []Synthesizer{
			componentSynth{},
			wireableSynth{},
			timeSynth{},
			sliceSynth{},
			mapSynth{},
			structSynth{},
		},
		registry: reg,
	}
}

// Register adds a custom synthesizer ahead of the built-ins.
func (s *Synthesizers) Register(syn Synthesizer) {
	if syn == nil {
		panic("hxwire: nil synthesizer")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.custom = append(s.custom, syn)
}

func (s *Synthesizers) chain() []Synthesizer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Synthesizer, 0, len(s.custom)+len(s.builtin))
	out = append(out, s.custom...)
	return append(out, s.builtin...)
}

// ForType returns the first synthesizer owning t, or nil for primitives.
func (s *Synthesizers) ForType(t reflect.Type) Synthesizer {
	for _, syn := range s.chain() {
		if syn.Match(t) {
			return syn
		}
	}
	return nil
}

// ForTag returns the first synthesizer able to read tag, or nil.
func (s *Synthesizers) ForTag(tag string) Synthesizer {
	for _, syn := range s.chain() {
		if syn.MatchTag(tag) {
			return syn
		}
	}
	return nil
}

// Dehydrate converts v to its wire form.
func (s *Synthesizers) Dehydrate(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
	}
	if v.Kind() == reflect.Interface {
		return s.Dehydrate(v.Elem())
	}

	if syn := s.ForType(v.Type()); syn != nil {
		payload, meta, err := syn.Dehydrate(s, v)
		if err != nil {
			return nil, err
		}
		return tagged(syn.Key(), payload, meta), nil
	}

	switch v.Kind() {
	case reflect.Ptr:
		return s.Dehydrate(v.Elem())
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("hxwire: cannot dehydrate non-finite float %v", f)
		}
		return f, nil
	case reflect.String:
		return v.String(), nil
	}
	return nil, fmt.Errorf("hxwire: cannot dehydrate value of type %s", v.Type())
}

// Hydrate converts a wire value back into a value of type t. A malformed or
// mismatched payload is an ErrHydration; no default is substituted.
func (s *Synthesizers) Hydrate(t reflect.Type, raw any) (reflect.Value, error) {
	if tag, payload, meta, ok := untag(raw); ok {
		return s.hydrateTagged(t, tag, payload, meta)
	}

	if raw == nil {
		return reflect.Zero(t), nil
	}
	if n, ok := raw.(json.Number); ok && t.Kind() == reflect.Interface {
		// Untyped targets get the same number encoding/json would give them.
		f, err := n.Float64()
		if err != nil {
			return reflect.Value{}, hydrationErrorf("number %s: %v", n, err)
		}
		raw = f
	}
	if rv := reflect.ValueOf(raw); rv.Type().AssignableTo(t) {
		if t.Kind() != reflect.Interface {
			return rv, nil
		}
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	}
	if t.Kind() == reflect.Interface {
		return reflect.Value{}, hydrationErrorf("%T does not implement %s", raw, t)
	}

	if syn := s.ForType(t); syn != nil {
		return syn.Hydrate(s, t, raw, nil)
	}
	if t.Kind() == reflect.Ptr {
		elem, err := s.Hydrate(t.Elem(), raw)
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(elem)
		return p, nil
	}
	return coerce(t, raw)
}

func (s *Synthesizers) hydrateTagged(t reflect.Type, tag string, payload any, meta map[string]any) (reflect.Value, error) {
	syn := s.ForTag(tag)
	if syn == nil {
		return reflect.Value{}, hydrationErrorf("no synthesizer for tag %q", tag)
	}

	switch {
	case syn.Match(t):
		return syn.Hydrate(s, t, payload, meta)
	case t.Kind() == reflect.Ptr && syn.Match(t.Elem()):
		elem, err := syn.Hydrate(s, t.Elem(), payload, meta)
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(elem)
		return p, nil
	case t.Kind() == reflect.Interface:
		// Without a concrete target the payload takes its natural Go shape.
		natural, ok := naturalTypes[tag]
		if !ok || !natural.AssignableTo(t) {
			return reflect.Value{}, hydrationErrorf("cannot hydrate %q into %s", tag, t)
		}
		return s.ForType(natural).Hydrate(s, natural, payload, meta)
	}
	return reflect.Value{}, hydrationErrorf("tag %q does not fit %s", tag, t)
}

var naturalTypes = map[string]reflect.Type{
	"arr":  anySliceType,
	"map":  anyMapType,
	"std":  anyMapType,
	"time": timeType,
}

func tagged(tag string, payload any, meta map[string]any) map[string]any {
	out := map[string]any{
		synthTagKey:   tag,
		synthValueKey: payload,
	}
	if len(meta) > 0 {
		out[synthMetaKey] = meta
	}
	return out
}

func untag(raw any) (tag string, payload any, meta map[string]any, ok bool) {
	m, isMap := raw.(map[string]any)
	if !isMap || len(m) < 2 || len(m) > 3 {
		return "", nil, nil, false
	}
	tag, ok = m[synthTagKey].(string)
	if !ok {
		return "", nil, nil, false
	}
	payload, ok = m[synthValueKey]
	if !ok {
		return "", nil, nil, false
	}
	if rawMeta, present := m[synthMetaKey]; present {
		meta, ok = rawMeta.(map[string]any)
		if !ok {
			return "", nil, nil, false
		}
	} else if len(m) == 3 {
		return "", nil, nil, false
	}
	return tag, payload, meta, true
}

// componentSynth links a parent to a child component by identity only.
// The child's own state travels in its own snapshot.
type componentSynth struct{}

func (componentSynth) Key() string               { return "cmp" }
func (componentSynth) MatchTag(tag string) bool  { return tag == "cmp" }
func (componentSynth) Match(t reflect.Type) bool { return t.Implements(componentType) }

func (componentSynth) Dehydrate(_ *Synthesizers, v reflect.Value) (any, map[string]any, error) {
	b := v.Interface().(Component).base()
	return b.id, map[string]any{"name": b.name}, nil
}

func (componentSynth) Hydrate(s *Synthesizers, t reflect.Type, payload any, meta map[string]any) (reflect.Value, error) {
	id, ok := payload.(string)
	if !ok || id == "" {
		return reflect.Value{}, hydrationErrorf("component reference needs an id, got %T", payload)
	}
	name, _ := meta["name"].(string)
	if name == "" {
		return reflect.Value{}, hydrationErrorf("component reference %q has no name", id)
	}
	if s.registry == nil {
		return reflect.Value{}, hydrationErrorf("no registry to resolve component %q", name)
	}
	c, err := s.registry.Instantiate(name, id)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %w", ErrHydration, err)
	}
	v := reflect.ValueOf(c)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, hydrationErrorf("component %q is %s, want %s", name, v.Type(), t)
	}
	return v, nil
}

type wireableSynth struct{}

func (wireableSynth) Key() string              { return "wrbl" }
func (wireableSynth) MatchTag(tag string) bool { return tag == "wrbl" }

func (wireableSynth) Match(t reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return false
	}
	if t.Implements(wireableType) {
		return true
	}
	return t.Kind() != reflect.Ptr && reflect.PointerTo(t).Implements(wireableType)
}

func (wireableSynth) Dehydrate(_ *Synthesizers, v reflect.Value) (any, map[string]any, error) {
	if w, ok := v.Interface().(Wireable); ok {
		payload, err := w.ToWire()
		return payload, nil, err
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	payload, err := p.Interface().(Wireable).ToWire()
	return payload, nil, err
}

func (wireableSynth) Hydrate(_ *Synthesizers, t reflect.Type, payload any, _ map[string]any) (reflect.Value, error) {
	if t.Kind() == reflect.Ptr {
		p := reflect.New(t.Elem())
		if err := p.Interface().(Wireable).FromWire(payload); err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %s: %w", ErrHydration, t, err)
		}
		return p, nil
	}
	p := reflect.New(t)
	if err := p.Interface().(Wireable).FromWire(payload); err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %s: %w", ErrHydration, t, err)
	}
	return p.Elem(), nil
}

type timeSynth struct{}

func (timeSynth) Key() string               { return "time" }
func (timeSynth) MatchTag(tag string) bool  { return tag == "time" }
func (timeSynth) Match(t reflect.Type) bool { return t == timeType }

func (timeSynth) Dehydrate(_ *Synthesizers, v reflect.Value) (any, map[string]any, error) {
	return v.Interface().(time.Time).Format(time.RFC3339Nano), nil, nil
}

func (timeSynth) Hydrate(_ *Synthesizers, _ reflect.Type, payload any, _ map[string]any) (reflect.Value, error) {
	str, ok := payload.(string)
	if !ok {
		return reflect.Value{}, hydrationErrorf("time payload must be a string, got %T", payload)
	}
	tm, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		return reflect.Value{}, hydrationErrorf("time payload %q: %v", str, err)
	}
	return reflect.ValueOf(tm), nil
}

type sliceSynth struct{}

func (sliceSynth) Key() string              { return "arr" }
func (sliceSynth) MatchTag(tag string) bool { return tag == "arr" }

func (sliceSynth) Match(t reflect.Type) bool {
	return t.Kind() == reflect.Slice || t.Kind() == reflect.Array
}

func (sliceSynth) Dehydrate(s *Synthesizers, v reflect.Value) (any, map[string]any, error) {
	items := make([]any, v.Len())
	for i := range items {
		item, err := s.Dehydrate(v.Index(i))
		if err != nil {
			return nil, nil, fmt.Errorf("[%d]: %w", i, err)
		}
		items[i] = item
	}
	return items, nil, nil
}

func (sliceSynth) Hydrate(s *Synthesizers, t reflect.Type, payload any, _ map[string]any) (reflect.Value, error) {
	items, ok := payload.([]any)
	if !ok {
		return reflect.Value{}, hydrationErrorf("%s payload must be a list, got %T", t, payload)
	}

	var out reflect.Value
	if t.Kind() == reflect.Array {
		if len(items) > t.Len() {
			return reflect.Value{}, hydrationErrorf("%d items do not fit %s", len(items), t)
		}
		out = reflect.New(t).Elem()
	} else {
		out = reflect.MakeSlice(t, len(items), len(items))
	}

	for i, item := range items {
		v, err := s.Hydrate(t.Elem(), item)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("[%d]: %w", i, err)
		}
		out.Index(i).Set(v)
	}
	return out, nil
}

type mapSynth struct{}

func (mapSynth) Key() string              { return "map" }
func (mapSynth) MatchTag(tag string) bool { return tag == "map" }

func (mapSynth) Match(t reflect.Type) bool {
	return t.Kind() == reflect.Map && t.Key().Kind() == reflect.String
}

func (mapSynth) Dehydrate(s *Synthesizers, v reflect.Value) (any, map[string]any, error) {
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k := iter.Key().String()
		item, err := s.Dehydrate(iter.Value())
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = item
	}
	return out, nil, nil
}

func (mapSynth) Hydrate(s *Synthesizers, t reflect.Type, payload any, _ map[string]any) (reflect.Value, error) {
	entries, ok := payload.(map[string]any)
	if !ok {
		return reflect.Value{}, hydrationErrorf("%s payload must be an object, got %T", t, payload)
	}

	out := reflect.MakeMapWithSize(t, len(entries))
	for k, raw := range entries {
		v, err := s.Hydrate(t.Elem(), raw)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%s: %w", k, err)
		}
		out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), v)
	}
	return out, nil
}

// structSynth carries plain records as their public fields.
type structSynth struct{}

func (structSynth) Key() string               { return "std" }
func (structSynth) MatchTag(tag string) bool  { return tag == "std" }
func (structSynth) Match(t reflect.Type) bool { return t.Kind() == reflect.Struct }

func (structSynth) Dehydrate(s *Synthesizers, v reflect.Value) (any, map[string]any, error) {
	props := propertiesOf(v.Type())
	out := make(map[string]any, len(props))
	for _, p := range props {
		item, err := s.Dehydrate(v.Field(p.index))
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", p.name, err)
		}
		out[p.name] = item
	}
	return out, nil, nil
}

func (structSynth) Hydrate(s *Synthesizers, t reflect.Type, payload any, _ map[string]any) (reflect.Value, error) {
	entries, ok := payload.(map[string]any)
	if !ok {
		return reflect.Value{}, hydrationErrorf("%s payload must be an object, got %T", t, payload)
	}

	out := reflect.New(t).Elem()
	for k, raw := range entries {
		p, ok := lookupProperty(t, k)
		if !ok {
			return reflect.Value{}, hydrationErrorf("%s has no property %q", t, k)
		}
		v, err := s.Hydrate(p.typ, raw)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%s: %w", k, err)
		}
		out.Field(p.index).Set(v)
	}
	return out, nil
}

// coerce converts a primitive wire value to the primitive kind of t.
// Integer targets accept integral numbers and numeric strings; the value
// must fit the target width.
func coerce(t reflect.Type, raw any) (reflect.Value, error) {
	out := reflect.New(t).Elem()

	switch t.Kind() {
	case reflect.Bool:
		switch b := raw.(type) {
		case bool:
			out.SetBool(b)
			return out, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err == nil {
				out.SetBool(parsed)
				return out, nil
			}
		}
	case reflect.String:
		if str, ok := stringOf(raw); ok {
			out.SetString(str)
			return out, nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(raw)
		if err != nil {
			return reflect.Value{}, hydrationErrorf("%v into %s: %v", raw, t, err)
		}
		if out.OverflowInt(n) {
			return reflect.Value{}, hydrationErrorf("%d overflows %s", n, t)
		}
		out.SetInt(n)
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := toUint64(raw)
		if err != nil {
			return reflect.Value{}, hydrationErrorf("%v into %s: %v", raw, t, err)
		}
		if out.OverflowUint(n) {
			return reflect.Value{}, hydrationErrorf("%d overflows %s", n, t)
		}
		out.SetUint(n)
		return out, nil
	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(raw)
		if err != nil {
			return reflect.Value{}, hydrationErrorf("%v into %s: %v", raw, t, err)
		}
		if out.OverflowFloat(f) {
			return reflect.Value{}, hydrationErrorf("%v overflows %s", f, t)
		}
		out.SetFloat(f)
		return out, nil
	}
	return reflect.Value{}, hydrationErrorf("cannot assign %T to %s", raw, t)
}

func stringOf(raw any) (string, bool) {
	if _, isNumber := raw.(json.Number); isNumber {
		return "", false
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func toInt64(raw any) (int64, error) {
	switch n := raw.(type) {
	case float64:
		if n != math.Trunc(n) || n < -(1<<63) || n >= 1<<63 {
			return 0, fmt.Errorf("not an integer")
		}
		return int64(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return toInt64(f)
	case string:
		return strconv.ParseInt(n, 10, 64)
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("out of range")
		}
		return int64(u), nil
	case reflect.Float32:
		f := rv.Float()
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("not an integer")
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("not a number")
}

// toUint64 is toInt64 for unsigned targets, covering the full uint64 range.
func toUint64(raw any) (uint64, error) {
	switch n := raw.(type) {
	case float64:
		if n != math.Trunc(n) || n < 0 || n >= 1<<64 {
			return 0, fmt.Errorf("not an unsigned integer")
		}
		return uint64(n), nil
	case json.Number:
		if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return u, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return toUint64(f)
	case string:
		return strconv.ParseUint(n, 10, 64)
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil
	}
	i, err := toInt64(raw)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("negative")
	}
	return uint64(i), nil
}

func toFloat64(raw any) (float64, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32:
		return rv.Float(), nil
	}
	return 0, fmt.Errorf("not a number")
}
