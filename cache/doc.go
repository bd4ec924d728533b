// Package cache provides the read-through cache used by repositories.
//
// # Overview
//
// The package exports three building blocks:
//
//   - Store: a byte level backend that can get, put and forget a key
//   - Service: read-through semantics, msgpack encoding, logging and metrics over a Store
//   - KeySerializer: builds stable cache keys from a namespace and arguments
//
// Two Store implementations ship with the module: an in-process sturdyc store
// and a redis store. NewStore picks one from Config.Driver.
//
// # Basic Usage
//
//	store, err := cache.NewStore(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	svc := cache.NewService(store, cache.WithLogger(logger))
//
//	user, err := cache.GetOrFetch(ctx, svc, "users.42", time.Hour,
//		func() *User { return new(User) },
//		func(ctx context.Context) (*User, error) {
//			return loadUser(ctx, 42)
//		})
//
// # Key Layout
//
// Repositories use the default serializer with "." as separator:
//
//   - "{key}.{id}" for a single record
//   - "{key}.*" for the unfiltered collection
//
// so invalidating a record touches exactly two keys.
//
// # Key Serialization Strategy
//
// Each argument becomes one segment:
//
//   - strings, []byte and numbers are written as text, named numeric types included
//   - fmt.Stringer values (uuid.UUID for instance) use String()
//   - pointers are dereferenced and nil becomes "nil"
//   - slices and arrays become "[a,b]"
//   - anything else is printed with %v, which sorts map keys
//
// # Failure Handling
//
// The cache never breaks a read. Backend and codec failures in GetOrFetch are
// logged, counted and the call falls through to the fetch function. Errors
// returned by the fetch function are passed back unchanged and never cached.
// Forget attempts every key and joins the errors.
package cache
