// Package queue carries stage jobs between the pipeline coordinator and the
// stage workers.
//
// Each stage kind (voice, video) has its own FIFO. Enqueue appends a job;
// Dequeue blocks up to the supplied wait and returns nil when nothing arrived,
// so worker loops can re-check their context between polls. Jobs are removed
// on dequeue; a worker that crashes mid-job leaves the pipeline in its last
// recorded status rather than redelivering.
//
// The redis backend uses one list per kind (LPUSH/BRPOP) and is the only one
// that spans processes on different hosts. The sqlite backend shares a file
// between local processes. The memory backend is process-local.
package queue
