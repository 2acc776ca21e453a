package codec

// Registry supplies codecs for types referenced by a schema but defined
// outside it. Foreign is called with the qualified name the reference
// resolved to and the compiled codecs of its generic arguments.
type Registry interface {
	Foreign(qualified string, args []*Codec) (*Codec, bool)
}

// MapRegistry is a Registry of non-generic foreign codecs.
type MapRegistry map[string]*Codec

// Foreign implements Registry.
func (m MapRegistry) Foreign(qualified string, args []*Codec) (*Codec, bool) {
	if len(args) > 0 {
		return nil, false
	}
	c, ok := m[qualified]
	return c, ok
}

// RegistryFunc adapts a function to the Registry interface.
type RegistryFunc func(qualified string, args []*Codec) (*Codec, bool)

// Foreign implements Registry.
func (f RegistryFunc) Foreign(qualified string, args []*Codec) (*Codec, bool) {
	return f(qualified, args)
}
