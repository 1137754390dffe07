// Package engine sequences a dream session: the user and simulated
// teammates pick ingredients, the sprite absorbs them one capsule at a
// time, a narrated video plays, and the sprite sleeps until woken.
//
// ARCHITECTURAL RULE: every timer goes through one Scheduler, and every
// callback belongs to the Scope of the phase that created it. Leaving a
// phase cancels its Scope synchronously, so nothing fires into a phase
// that no longer exists.
package engine
