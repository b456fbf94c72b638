// Package events carries the notifications emitted while tools run.
//
// Subprocess output is turned into Events by the line parsers and published
// on a Bus. Subscribers receive events synchronously, in publication order,
// on the publishing goroutine, so every event of a tool run has been handled
// once the run returns. Classify maps an event to the task updates it implies.
package events
