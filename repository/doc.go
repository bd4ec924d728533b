// Package repository provides a single cached repository in front of an ORM.
//
// # Overview
//
// A Repository is bound to an entity by name, narrowed with criteria and then
// used for reads and writes:
//
//	repo := repository.New(registry, store, repository.WithCache(svc))
//
//	posts, err := repository.As[[]*Post](
//		repo.Entity("post").
//			WithCriteria(criteria.Where("user_id", "=", 7), criteria.Latest()).
//			All(ctx),
//	)
//
// Entity asks the Factory for a model instance and the Store to describe it.
// Relation redirects the handle to a has-one or has-many association of the
// bound entity, scoped to one parent. WithCriteria accepts Criterion values,
// plain func(Query) (Query, error) functions and nested slices of either, and
// folds them left to right over the current Query.
//
// # Handles
//
// Entity, Relation and WithCriteria never modify the receiver. They return a
// copy carrying the new state, so a base repository bound to an entity can be
// shared and narrowed per request without locks. Errors raised while building
// a handle are latched and returned by the next operation.
//
// Results are returned as any. As converts a single result, and Typed wraps a
// handle so every operation returns *T or []*T:
//
//	posts, err := repository.For[Post](repo, "post")
//	post, err := posts.Find(ctx, 7)
//
// # Caching
//
// Two reads are cached, and only when the handle carries no criteria and no
// relation scope:
//
//   - Find(id) under "{key}.{id}"
//   - All() under "{key}.*"
//
// where key is the model's table unless WithCacheKey says otherwise. Create,
// Update and Delete forget exactly those two keys for the affected record.
// Filtered reads always go to the store, so no stale filtered result can
// outlive a mutation.
//
// Invalidation does not lock against readers. When a read misses, fetches the
// record and stores it after a concurrent mutation has already forgotten the
// key, the older value stays cached until its TTL expires. Keep the TTL short
// for entities written from several goroutines at once.
//
// # Errors
//
// Failures are reported with typed errors that match the package sentinels
// through errors.Is: *InvalidEntityError, *RecordNotFoundError and
// *ResolutionError. Store and criterion errors are returned unchanged.
package repository
