// Package viz is the interactive terminal front end: the lava lamp drawn with
// colored half blocks next to a panel with the activity gauge and the
// capture log.
//
// # Key Bindings
//
//	H - Derive a 256-bit hex key
//	U - Derive a UUID
//	I - Derive a bounded integer
//	S - Switch between the simulated lamp and the camera
//	R - Retry the camera after a failure
//	T - Cycle color themes
//	? - Show help overlay
//	Q - Quit
//
// Derivations run off the UI loop; further derive keys are ignored until the
// pending one reports back.
package viz
