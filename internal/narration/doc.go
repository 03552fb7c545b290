// Package narration models the narrated chapter documents consumed by the
// pipeline: chapters made of ordered panels, each pairing an image URL with
// narration text and an audio artifact.
//
// Decode accepts both the native document shape and the panel-wise dialog
// export produced by the narration service, and always yields one Chapter per
// chapter so that every pipeline job carries exactly one chapter.
package narration
