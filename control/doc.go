// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime counters, debug probes and live-tunable settings of the echo
// server. Controller bundles them behind api.Control; snapshots serialize
// to JSON for the example binary's periodic stats line.
package control
