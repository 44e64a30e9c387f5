// Package async provides a small generic Future for running a computation on
// its own goroutine and waiting for its completion.
//
// Async starts the supplied function and immediately returns a *Future. The
// caller waits with Await, bounds the wait with AwaitWithTimeout, polls with
// IsComplete, or registers a callback with OnComplete. Run is a shorthand for
// computations that only produce an error.
//
// The session middleware uses a Future as its finalization gate: the store
// write runs asynchronously and the response waits for it.
//
// # Usage
//
//	f := async.Run(ctx, func(ctx context.Context) error {
//	    return store.Set(ctx, id, data)
//	})
//	if _, err := f.AwaitWithTimeout(time.Second); errors.Is(err, async.ErrTimeout) {
//	    f.OnComplete(func(_ struct{}, err error) { log(err) })
//	}
package async
