// Package funnel records funnel events and derives stage statistics from
// them.
//
// Events are never aggregated on write. Stats and CompareVariants read the
// event log on demand and count distinct subjects, so repeated events for
// the same subject never inflate a stage.
//
// Variant comparison uses a pooled two-proportion z-test between the first
// two variants in lexicographic order. Conversion rates are rounded to four
// places before they enter the test and p-values are reported to six.
package funnel
