// Package textutil provides small text helpers shared by the render and
// workflow packages: a bounded tail buffer for external tool stderr and
// truncation for status messages.
package textutil
