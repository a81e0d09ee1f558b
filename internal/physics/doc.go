// Package physics provides the lava lamp simulation that feeds the
// simulated entropy source.
//
// A [Lamp] owns a fixed arena of [BlobCount] blobs. Each call to
// [Lamp.Step] moves every blob by its velocity; velocities are per-tick
// deltas, so the host may call Step at any rate:
//
//	lamp := physics.NewLamp(physics.NewRNG(seed))
//	lamp.Resize(640, 384)
//	for range ticker.C {
//	    lamp.Step()
//	}
//
// Positions never leave the band of one radius around the surface: blobs
// wrap horizontally like a torus and re-enter vertically from the opposite
// edge with their vertical velocity pointing back into the surface.
package physics
