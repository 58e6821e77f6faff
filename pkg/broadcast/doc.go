// Package broadcast is a small typed publish/subscribe fan-out used to push
// state snapshots to UI bindings. It deliberately assumes nothing about the
// consumer: any rendering layer that can read from a channel can subscribe.
//
// Delivery is best-effort. A subscriber that falls behind its buffer misses
// intermediate values and only sees later ones, which is the right trade-off
// for state snapshots where only the latest value matters.
package broadcast
