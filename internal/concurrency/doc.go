// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single-consumer event loop that serializes socket events onto one
// goroutine. Reader goroutines of the socket layer post; only the loop
// goroutine touches connection state.
package concurrency
