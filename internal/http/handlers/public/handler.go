package public

import "github.com/Rishiupp/pettrack-api/internal/provider"

// Handler serves the user-facing API: auth, orders, payments, QR codes.
type Handler struct {
	*provider.Container
}

// New creates the public handler.
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
