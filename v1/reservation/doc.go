// Package reservation maintains per-title FIFO waiting lists with stable,
// contiguous 1-based positions under concurrent mutation, and a bounded
// hand-off channel that decouples reservation-intent producers from the
// consumer loop performing the queue mutations and promotions.
package reservation
