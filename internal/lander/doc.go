// Package lander is the vertical-landing simulation core.
//
// A [Model] owns every piece of physical, environmental, resource and
// controller state for one descent. A driver calls [Model.Advance] on a fixed
// cadence; each call moves simulated time forward by exactly [Dt] seconds and
// returns a [Snapshot] that the driver forwards to whatever renders or
// persists it. Commands (thrusters, throttle, gear, abort, gains, reset) mutate
// the model synchronously and take effect on the next Advance.
//
// # Randomness
//
// All noise is drawn from an injected [rng.Source]; pass [rng.Zero] through
// [WithSource] to fly a noise-free, exactly reproducible descent.
//
// # Thread Safety
//
// Model is NOT safe for concurrent use. Drivers that accept commands from
// several goroutines must serialize every call, see sim.Runner.
package lander
