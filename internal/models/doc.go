// Package models defines domain entities and persistence interfaces for the playlog ETL pipeline.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs moved between pipeline stages
//   - [PlayRecord] : A transformed play event (song, artist, played-at key, date prefix)
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Run] : One pipeline invocation with status, stage counts, and timing
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
