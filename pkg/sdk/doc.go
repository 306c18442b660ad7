// Package marketrank is the embedded Go client for the marketrank engine.
//
// The client connects straight to the Redis backend and runs the search and
// trust pipeline in-process, without the HTTP layer. Use it from ingest jobs,
// batch tooling, and services that live next to the database:
//
//	client, err := marketrank.New(ctx, marketrank.WithRedis("127.0.0.1:6379", ""))
//	if err != nil { ... }
//	defer client.Close()
//
//	results, err := client.Search(ctx, "walnut table", marketrank.SearchOptions{Limit: 5})
package marketrank
