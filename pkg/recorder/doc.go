// Package recorder implements the client side capture pipeline: a capture
// engine that slices continuous audio into indexed segments, a session state
// machine that owns lifecycle and duration accounting, a durable offline
// queue, and a sync manager that drains the queue against the network.
//
// The pipeline is built for unreliable networks: every produced segment is
// mirrored into the durable queue before any upload is attempted, and the
// sync manager retries each pending item up to its retry ceiling before
// dropping it with a surfaced warning.
package recorder
