// package pipeline converts a Spotify playlist into YouTube video links.
//
// The Engine reads the playlist once, then resolves tracks strictly in
// playlist order: one search per track, rate limited, with each result
// emitted on a progress channel the moment it lands. A search that fails for
// one track never aborts the run; the failure is recorded in that track's
// slot and the run continues.
package pipeline
