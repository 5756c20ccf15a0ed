// Package engine ties a graph, its simulation and its interaction
// controller into one live layout session.
//
// An [Engine] is single-owner: every method must be called from the same
// goroutine, and it never spawns goroutines itself. Rendering backends
// register a [Listener] and receive a snapshot after every step and the
// camera after every camera change.
//
// [Loop] runs an Engine on a dedicated goroutine driven by a ticker. Other
// goroutines talk to it only through the loop's mailbox, which never blocks
// the sender and never drops a message. Mailbox items run between steps, so
// a step and an event handler never overlap.
//
// Loading a new graph stops the running simulation before the new one
// starts and detaches every listener; renderers subscribe again for the new
// generation.
//
// When a view size is known ([Engine.SetView] or [Engine.Fit]), the first
// time a loaded layout comes to rest the camera eases to fit it. Later
// settles after a drag leave the camera where the user put it.
package engine
