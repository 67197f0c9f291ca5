// Package hxwire keeps typed, mutable component state alive across
// stateless request/response exchanges.
//
// A component is a Go struct whose exported fields are its public state.
// After every render that state is serialized into a signed snapshot and
// sent to the client next to the markup. The client sends the snapshot back
// with a batch of mutations; hxwire verifies it, rebuilds an equivalent
// instance, applies the mutations, re-renders and returns a new snapshot.
//
// # Components
//
// Components embed hxwire.Base and are registered by name with a factory:
//
//	type Counter struct {
//	    hxwire.Base
//	    Count int `hx:"count"`
//	}
//
//	//hxwire:action
//	func (c *Counter) Increment() { c.Count++ }
//
//	func (c *Counter) Render(ctx context.Context) templ.Component {
//	    return counterView(c)
//	}
//
//	m.Component("counter", hxwire.FactoryOf[Counter]())
//
// Exported fields are public unless tagged `hx:"-"`. The hx tag renames a
// property; by default the lowercased field name is used, and two fields
// sharing a name panic. An embedded exported struct travels as one nested
// property named after its type. Unexported fields and the embedded Base
// are runtime state and never leave the server.
//
// # Lifecycle
//
// Mounting runs Boot, applies params to matching properties, runs Mount,
// renders and dehydrates. Updating decodes and verifies the snapshot,
// hydrates the instance (Boot, then Hydrate; never Mount), applies every
// property write, then every method call in order, renders and dehydrates.
// Optional interfaces Booter, Mounter, Hydrater, Updater, Dehydrater and
// Renderer opt a component into each step.
//
// Callable methods are listed by Actions(), usually generated by
// 'hxwire generate' from //hxwire:action directives. The magic methods
// $refresh, $set and $toggle are available on every component.
//
// # Values
//
// Primitives travel as they are. Other values are converted by an ordered
// chain of synthesizers into {"s": tag, "value": payload, "m": meta}.
// Built-ins handle slices (arr), string-keyed maps (map), structs (std),
// time.Time (time), types implementing Wireable (wrbl) and references to
// other components (cmp). Custom synthesizers registered with
// PropertySynthesizer are consulted first.
//
// # Security Model
//
// Snapshots are authenticated with an HMAC over a canonical form of the
// memo and data; any change, including a key whose case changed, is
// rejected as ErrTamperedSnapshot. WithSealing additionally encrypts the
// whole snapshot with AES-GCM. The update handler requires the X-Hxwire
// header, which blocks cross-site form posts.
//
// # Extension
//
// Hooks observe every lifecycle point and may veto writes and calls by
// returning an error. Persistent middleware wraps the mount, hydrate,
// update, render and dehydrate phases and may short-circuit them.
package hxwire
