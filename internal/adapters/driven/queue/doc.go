// Package queue holds the job transports behind driven.JobQueue.
//
// The local transport runs jobs on an in-process worker pool and suits a
// single `bookchat serve` process. The redis transport pushes jobs onto a
// Redis list consumed by one or more `bookchat worker` processes.
package queue

import "errors"

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("queue closed")

// ErrFull is returned by Enqueue when the local buffer has no room.
var ErrFull = errors.New("queue full")
