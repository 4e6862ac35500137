package cache

import "sync"

// Container guarda la última colección obtenida y el flag de carga.
// Mientras loading es true no se debe asumir frescura de los datos.
//
// Cada refresh recibe un número de secuencia; solo se aplica la respuesta de
// la petición emitida más recientemente y Clear invalida las que estén en curso.
type Container[T any] struct {
	mu      sync.RWMutex
	data    *T
	loading bool
	issued  uint64
	version uint64
}

// Get devuelve la colección (nil antes del primer fetch) y el flag de carga.
// El valor devuelto es compartido y no debe modificarse.
func (c *Container[T]) Get() (*T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data, c.loading
}

func (c *Container[T]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Version avanza cada vez que la colección guardada se reemplaza o se limpia.
func (c *Container[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *Container[T]) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	c.loading = true
	return c.issued
}

// commit aplica data si seq sigue siendo la última petición emitida.
// Si same reporta igualdad con lo guardado, se conserva la referencia actual.
func (c *Container[T]) commit(seq uint64, data *T, same func(old, next *T) bool) (applied, changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.issued {
		return false, false
	}
	c.loading = false
	if c.data != nil && same != nil && same(c.data, data) {
		return true, false
	}
	c.data = data
	c.version++
	return true, true
}

// abort limpia el flag de carga sin tocar los datos guardados.
func (c *Container[T]) abort(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq == c.issued {
		c.loading = false
	}
}

// Clear descarta la colección e invalida los fetch en curso.
func (c *Container[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	c.loading = false
	if c.data != nil {
		c.data = nil
		c.version++
	}
}
