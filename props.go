package hxwire

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// propField is a public property of a struct type.
type propField struct {
	name  string
	index int
	typ   reflect.Type
}

var (
	propCache sync.Map // map[reflect.Type][]propField
	baseType  = reflect.TypeOf(Base{})
)

// propertiesOf returns the public properties of struct type t, in field
// order. Exported fields are public unless tagged `hx:"-"`; the tag value
// renames the property, otherwise the lowercased field name is used.
// An embedded exported struct is one nested property named after its type.
// Embedded Base and embedded components are runtime state and never public.
//
// Two fields mapping to the same name is a programming error and panics.
func propertiesOf(t reflect.Type) []propField {
	if cached, ok := propCache.Load(t); ok {
		return cached.([]propField)
	}

	var props []propField
	seen := make(map[string]string)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || (f.Anonymous && !embeddedRecord(f.Type)) {
			continue
		}
		tag := f.Tag.Get("hx")
		if tag == "-" {
			continue
		}
		name := tag
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		if other, dup := seen[name]; dup {
			panic(fmt.Sprintf("hxwire: %s: fields %s and %s both map to property %q", t, other, f.Name, name))
		}
		seen[name] = f.Name
		props = append(props, propField{name: name, index: i, typ: f.Type})
	}

	propCache.Store(t, props)
	return props
}

// embeddedRecord reports whether an embedded field of type t carries data.
func embeddedRecord(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t == baseType {
		return false
	}
	return !reflect.PointerTo(t).Implements(componentType)
}

func lookupProperty(t reflect.Type, name string) (propField, bool) {
	for _, p := range propertiesOf(t) {
		if p.name == name {
			return p, true
		}
	}
	return propField{}, false
}

// structOf returns the struct value behind a component pointer.
func structOf(c Component) reflect.Value {
	return reflect.ValueOf(c).Elem()
}
