// Package resource implements a Controller for global limits and governance.
//
// The Controller provides centralized management of three resource types:
//
//   - Memory: track and limit managed memory (non-blocking, fail-fast)
//   - Concurrency: bound background workers (index builds, snapshot uploads)
//   - IO: rate-limit background IO to avoid starving foreground searches
//
// # Memory
//
// Memory tracking uses a weighted semaphore for hard limits and an atomic
// counter for usage. AcquireMemory is non-blocking and returns
// ErrMemoryLimitExceeded immediately if the limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB
//	})
//
//	if err := rc.AcquireMemory(1024 * 1024); err != nil {
//	    // caller decides retry/backoff
//	}
//	defer rc.ReleaseMemory(1024 * 1024)
//
// # Background Workers
//
//	rc := resource.NewController(resource.Config{
//	    MaxBackgroundWorkers: 4,
//	})
//
//	if err := rc.AcquireBackground(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseBackground()
//
// # IO Rate Limiting
//
// A token bucket caps background throughput:
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 100 * 1024 * 1024, // 100MB/s
//	})
//
//	w := resource.NewRateLimitedWriter(ctx, file, rc)
//	r := resource.NewRateLimitedReader(ctx, file, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully and become no-ops, so
// resource limiting stays optional without nil checks at every call site.
package resource
