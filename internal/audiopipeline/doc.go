// Package audiopipeline implements a stage/port audio processing
// runtime: a directed graph of Stages connected by Source/Sink port
// pairs, pulling Buffers through the graph on demand rather than
// pushing them on a fixed schedule.
//
// # Architecture
//
//   - Stage: a processing node (BeginPlayback/Process/StoppedPlayback),
//     owning zero or more named Source and Sink ports.
//   - Source/Sink: the two ends of a link. Link/Unlink/Replace manage
//     which Source feeds which Sink; each link owns one BufferQueue.
//   - Synchronicity resolution: a Stage with exactly one Source decides,
//     per link, whether that Source runs synchronously (driven directly
//     by a downstream Pull) or asynchronously (its own goroutine, woken
//     by a Clock) — see resolveSynchronicity in stage.go.
//   - Clock/ClockProvider: fan out presentation ticks to every
//     asynchronous Stage sharing a playback session.
//   - MessageBus: lock-free fan-in for error/warning/progress/
//     end-of-stream notifications from any Stage.
//   - BufferPool: free-stack Buffer recycling through single-owner
//     ManagedBuffer handles, sized from a template BufferFormat/length.
//
// Concrete Stages (sources/wavfile, sources/malgosink,
// processors/gain) and the demo CLI in cmd/audiopipeline-demo compose
// these primitives into a runnable graph.
package audiopipeline
