// Package stage defines the contract shared by the voice and video stage
// handlers and the worker lanes that drive them.
package stage
