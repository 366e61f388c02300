// Package alert provides the business boundary for Stormgate's alert intake
// engine. It defines the Manager (intake orchestration, acknowledgment,
// filtered listing), Deduplicator (time-windowed dedup), StormDetector
// (per-device burst suppression), Store interface (persistence), and domain
// models.
package alert
