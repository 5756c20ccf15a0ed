// Package sim implements the force-directed layout simulation.
//
// A [Simulation] owns node positions and velocities for one [graph.Graph]
// and advances them in discrete steps under a composable list of forces.
// The default force set, applied in order each step, is:
//
//  1. [Link]: springs along every non-loop edge toward a rest distance
//  2. [ManyBody]: all-pairs repulsion with a minimum-distance clamp
//  3. [Center]: shifts the centroid onto the origin
//  4. [AxisX], [AxisY]: optional degree-weighted pull toward each axis
//
// Velocities are damped by [Params.VelocityDecay] and added to positions.
// Pinned nodes snap to their pin: they exert forces but are never moved by
// them.
//
// # Energy
//
// The scalar alpha starts at 1 and decays each step toward the alpha target:
//
//	alpha += (target - alpha) * AlphaDecay
//
// The target is 0 except while a node is being dragged ([Simulation.Reheat]
// raises it to [Params.ReheatAlpha], [Simulation.Cool] drops it again).
//
// # Lifecycle
//
//	Idle ──Step──▶ Running ──▶ Settling ──▶ AtRest
//	                  ▲                        │
//	                  └────────Reheat──────────┘
//
// A Simulation is not safe for concurrent use. pkg/engine serializes access
// through a single owner goroutine.
//
// # Modes
//
// Batch mode runs a fixed number of steps before anything is drawn:
//
//	s := sim.New(g, sim.Batch())
//	s.Run(ctx, s.Params().Steps)
//
// Streaming mode steps one frame at a time and reports each snapshot:
//
//	for snap := range s.Frames() {
//	    draw(snap)
//	}
//
// Initial positions follow a phyllotaxis spiral over the sorted node IDs, so
// the same graph and seed always produce the same layout.
package sim
