// Package dataprocessing provides bounded-memory processing of large record sets.
// It is the domain-agnostic core that the industry handlers (banking, e-commerce,
// healthcare) build on.
//
// # Architecture
//
// The package is organized into two components:
//
// 1. Chunk engine: splits a resolved record slice into fixed-size chunks and
// hands them to a processor one at a time, reporting progress after each.
// 2. Stream source: pulls pages from a paginated collaborator and exposes them
// as a lazy, single-pass iterator of batches.
//
// # Usage
//
// Chunked processing with a validation gate:
//
//	err := dataprocessing.ProcessInChunks(ctx,
//	    dataprocessing.FromSlice(records),
//	    func(ctx context.Context, chunk []Record) error {
//	        return repo.Save(ctx, chunk)
//	    },
//	    dataprocessing.Options[Record]{
//	        ChunkSize:  500,
//	        OnProgress: func(pct int) { log.Printf("%d%%", pct) },
//	        Validate:   validateRecords,
//	    })
//
// Streaming from a paginated source:
//
//	for batch, err := range dataprocessing.StreamBatches(ctx, repo.Fetch, opts) {
//	    if err != nil {
//	        return err
//	    }
//	    handle(batch)
//	}
//
// # Ordering and progress
//
// In the default sequential mode chunks are processed strictly in index order
// and OnProgress receives non-decreasing values that end at 100. An empty input
// produces no chunks and no progress callbacks. Setting Options.Workers above one
// processes chunks concurrently; progress stays monotonic but chunks may finish
// out of index order.
//
// # Error Handling
//
// Validation failures return *ValidationError before any chunk runs. A failing
// processor stops the run with *ProcessingError naming the chunk index; earlier
// chunks are not rolled back. Stream fetch failures surface as *StreamFetchError.
package dataprocessing
