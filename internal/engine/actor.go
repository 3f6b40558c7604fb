package engine

// Actor is the authenticated staff identity, resolved once at the gateway
// boundary. The engine carries it for audit attribution only.
type Actor struct {
	ID   int64
	Role string
}
