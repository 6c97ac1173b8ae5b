package store

const (
	defaultScope = "flowpilot"
)

// Options are options for a snapshot store backend.
type Options struct {
	// URL encodes how we'll connect to the backend (postgres:// or
	// redis:// URLs). Unused by the file and memory backends.
	URL string

	// Dir is the state directory of the file backend.
	Dir string

	// Scope namespaces keys so several sessions can share one backend.
	// Defaults to "flowpilot".
	Scope string
}

func (o *Options) SetDefaults() {
	if o.Scope == "" {
		o.Scope = defaultScope
	}
}
