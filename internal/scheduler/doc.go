// Package scheduler drives the ingestion loops.
//
// Each registered job runs on its own goroutine: an eager first run at
// startup, then a fixed-interval ticker. Ticks run to completion — a
// slow fetch never overlaps the next one, it just delays it. Fetches
// are wrapped in bounded retries; persistence failures are logged and
// the loop carries on. A separate daily loop purges aged rows.
package scheduler
