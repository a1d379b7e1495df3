// Package relay pairs anonymous clients by tag and forwards WebRTC
// negotiation messages between the two members of each session.
//
// A Relay is the single owner of connection, queue and session state. The
// transport layer registers each accepted connection, feeds every received
// frame to Handle, and unregisters the connection once it closes.
package relay
