// Package webrequester dispatches batches of HTTP requests across two
// transports: a shared, connection-pooled client for plain-http fetches,
// and a bounded pool of blocking workers for everything the pooled client
// handles poorly (https targets, https or partial proxy setups, response
// callbacks). Each target is routed independently, fetched concurrently,
// and lands at its own index in the result list. Requests that fail are
// logged and leave an absent slot instead of failing the batch; only a
// malformed batch aborts before dispatch.
package webrequester
