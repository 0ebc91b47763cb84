// Package clinic implements the scheduling core of a clinic triage
// simulation.
//
// Patients arrive with one of three priority tiers and wait in a shared
// [Queue]. A fixed pool of [Doctor] workers takes patients from the queue,
// most urgent first and in arrival order within a tier, and serves each for a
// duration drawn from a per-tier [ServicePolicy]. An [Arrivals] generator
// adds random patients on a fixed period.
//
// Presentation layers never touch the queue or the doctors directly. They
// inject work through [Clinic.Register] and observe the simulation through
// the [Observer] interface, whose callbacks are isolated so a failing
// observer cannot stop a doctor or the generator.
package clinic
