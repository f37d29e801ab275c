// Package scatter places instances of decorative templates (grass tufts,
// clumps, pebbles) across a bounded surface.
//
// A run samples candidate points inside the target area, drops a vertical
// probe onto the designated surface, rejects points closer than the minimum
// spacing to anything already accepted, and finally probes for foreign
// bodies around the chosen point. Every item gets its own attempt budget, so
// Config.Count is a ceiling rather than a guarantee.
//
// The surface, collision, random and instantiation capabilities are injected
// through small interfaces. Nothing is shared between runs: the accepted set
// lives only for the duration of one Scatter call.
package scatter
