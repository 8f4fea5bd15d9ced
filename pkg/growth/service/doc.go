// Package service exposes the growth engine through one facade.
//
// Service combines the assignment engine, funnel analytics and rollout
// governor over a single growth.Storage. Each method opens a span, records
// latency and error kind metrics, and logs failures with the experiment,
// subject or strategy type attached to the context.
//
// Validation failures are logged at debug level and counted with kind
// "invalid_input"; storage failures are logged at error level with kind
// "storage".
package service
