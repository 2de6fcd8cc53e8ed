// Package cronexpr parses seven-field cron expressions and computes firing
// instants from wall-clock time.
//
// # Grammar
//
// Seven space-separated fields:
//
//	second minute hour day-of-month month day-of-week year
//
// Each field accepts integer literals, ranges "a-b", steps "a/b" and "a-b/c",
// the wildcard "*", and comma lists. Months and weekdays accept three-letter
// names ("Jan".."Dec", "Sun".."Sat"); 7 is accepted as Sunday. Years range
// 1970..2100.
//
// The shorthands @yearly, @monthly, @weekly, @daily, @hourly, @minutely and
// @secondly expand to their canonical seven-field forms.
//
// # Day matching
//
// Standard cron rule: when both day-of-month and day-of-week are restricted,
// a day matching either fires (union); otherwise the restricted field alone
// decides (intersection with the wildcard).
//
// Schedules are quantized to whole seconds. Next is strictly-after: the
// returned instant is always later than the argument.
package cronexpr
