// Package proxy defines AppProxy: the interface between a Cadence node and the
// application whose transactions it orders.
//
// The application submits raw transactions through the proxy, and the node
// commits every delta accepted on its hash chain back to the application, in
// chain order.
//
// - InmemProxy: An InmemProxy uses native callback handlers to integrate
// Cadence as a regular Go dependency.
package proxy
