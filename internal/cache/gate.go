package cache

// SessionGate es la vista de la sesión que necesitan los caches.
type SessionGate interface {
	Authenticated() bool
	// RequireLogin avisa a la UI que debe pedir credenciales.
	RequireLogin()
	// Expire marca la sesión como vencida cuando la API rechaza la credencial.
	Expire()
}
