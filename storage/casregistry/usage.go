package casregistry

// Usage restricts which programs accept a given backend.
//
// Backends are linked at build time: a backend registers itself via init()
// and is enabled in a binary by importing the backend package.
type Usage uint8

const (
	// UsageCLI marks backends usable from radup itself.
	UsageCLI Usage = 1 << iota
	// UsageDaemon marks backends that radup-journald can serve.
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }
