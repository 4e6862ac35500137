package identity

import "context"

// Await adapta un SDK con callbacks de éxito/fallo a un Result síncrono.
// El callback puede invocarse desde otra goroutine; llamadas repetidas se ignoran.
func Await(ctx context.Context, start func(done func(Tokens, error))) Result {
	ch := make(chan Result, 1)
	start(func(t Tokens, err error) {
		select {
		case ch <- Result{Tokens: t, Err: err}:
		default:
		}
	})
	select {
	case res := <-ch:
		return res
	case <-ctx.Done():
		return Failure(ctx.Err())
	}
}
