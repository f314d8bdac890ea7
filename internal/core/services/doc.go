// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Ingestion, retrieval and chat each live in their own service; the
// JobDispatcher ties the catalogue to ingestion through a job queue.
package services
