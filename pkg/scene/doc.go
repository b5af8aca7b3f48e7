// Package scene defines the in-memory scene graph for Kiln.
// A Scene is an arena of Xform, Mesh and Scope nodes addressed by stable
// NodeIDs; parent and child links are IDs, never pointers. Loading,
// saving and picking all operate on this model.
package scene
