// Package store provides SQLite-backed storage for parsed log series.
//
// Each imported log file becomes a run identified by a UUIDv7, so runs sort
// by import time. Points keep the order in which they appeared in the file
// (seq), which is not necessarily generation order: the device may repeat
// or skip generations and the archive records exactly what was logged.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
