// Package wheel implements the hierarchical timing wheel that paces the
// scheduler.
//
// Four fixed-size wheels cascade into each other: seconds (60 slots of 1s),
// minutes (60 of 60s), hours (24 of 3600s) and days (30 of 86400s). A task id
// lives in exactly one slot at a time, in the highest wheel whose unit fits
// its remaining delay. Advancing the seconds hand is the tick; when a hand
// wraps, the next-coarser hand advances and the slot it reaches is cascaded
// down. The seconds slot at the new hand is the due set, emitted in O(1)
// amortized time per tick regardless of how many ids are scheduled.
//
// Delays beyond the 30-day horizon are clamped to the far slot of the days
// wheel; the excess rides along as the entry's residual and the entry
// re-enters the insert path on each cascade until it fits.
//
// The Driver owns the tick cadence: it sleeps to whole-second boundaries of
// an injected clock, catches up tick-by-tick after a late wake, and hands
// every due id to the emit callback in ascending id order.
package wheel
