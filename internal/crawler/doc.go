// Package crawler implements the fetch-and-extract half of the audit
// pipeline: the crawl profile that scopes a run to one host, the HTTP
// fetcher, the HTML/PDF/image analyzers, and the worker that processes
// one queue item per call.
//
// The worker deliberately performs exactly one network fetch per Process
// call. Crawl progress across a whole site comes from repeated calls
// (the pipeline's bounded loop or the scheduler), never from internal
// parallelism, so at most one request per run is in flight at a time.
package crawler
