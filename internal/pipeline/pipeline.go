package pipeline

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"sp2yt/internal/services"
	"sp2yt/internal/shared"
)

// State describes where a Run currently is.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateResolving
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateResolving:
		return "resolving"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Run is the accumulated state of one conversion. Results holds one entry
// per playlist track, in playlist order.
type Run struct {
	PlaylistID   string
	PlaylistName string
	Total        int
	Results      []MatchResult
	State        State
	FailReason   error
}

// Found counts results that resolved to a link.
func (r *Run) Found() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusFound {
			n++
		}
	}
	return n
}

// Progress reports completion as a fraction of the playlist, in [0, 1].
func (r *Run) Progress() float64 {
	if r.State == StateComplete {
		return 1
	}
	if r.Total == 0 {
		return 0
	}
	return float64(len(r.Results)) / float64(r.Total)
}

// Reader reads a playlist from its source.
type Reader interface {
	ReadPlaylist(ctx context.Context, playlistID string) (*services.PlaylistExport, error)
}

// Resolver turns one track into a MatchResult.
type Resolver interface {
	Resolve(ctx context.Context, track services.Track) MatchResult
}

// Engine drives a conversion end to end.
type Engine struct {
	reader   Reader
	resolver Resolver
	limiter  *rate.Limiter
	logger   *log.Logger
}

// NewEngine creates an Engine. requestsPerSecond caps the search rate; zero
// or negative disables limiting.
func NewEngine(reader Reader, resolver Resolver, requestsPerSecond float64, logger *log.Logger) *Engine {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{reader: reader, resolver: resolver, limiter: limiter, logger: logger}
}

// Convert reads the playlist identified by ref and resolves every track to a
// YouTube link, strictly in playlist order.
//
// Progress updates are sent to the progress channel with a non-blocking
// send: a slow or absent consumer drops updates but never stalls the run.
// Per-track search failures are recorded in their result slot and the run
// still completes; only an unreadable or empty playlist fails the run, and
// then the returned Run carries the reason in FailReason alongside the
// returned error.
func (e *Engine) Convert(ctx context.Context, progress chan<- Update, ref string) (*Run, error) {
	run := &Run{State: StateIdle}

	if e.resolver == nil {
		return e.fail(progress, run, fmt.Errorf("%w: no resolver configured", shared.ErrInvalidConfig))
	}

	e.sendProgress(progress, startedUpdate(ref))

	playlistID, err := services.ExtractPlaylistID(ref)
	if err != nil {
		return e.fail(progress, run, err)
	}
	run.PlaylistID = playlistID

	run.State = StateFetching
	e.sendProgress(progress, fetchingUpdate(playlistID))

	export, err := e.reader.ReadPlaylist(ctx, playlistID)
	if err != nil {
		return e.fail(progress, run, err)
	}
	run.PlaylistName = export.Playlist.Name

	if len(export.Tracks) == 0 {
		return e.fail(progress, run, fmt.Errorf("%w: %s", shared.ErrPlaylistEmpty, playlistID))
	}

	run.State = StateResolving
	run.Total = len(export.Tracks)
	run.Results = make([]MatchResult, 0, run.Total)
	total := run.Total

	for _, track := range export.Tracks {
		if err := ctx.Err(); err != nil {
			return e.fail(progress, run, err)
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return e.fail(progress, run, err)
			}
		}

		result := e.resolver.Resolve(ctx, track)
		if result.Status == StatusError {
			e.logger.Warn("track resolution failed",
				"track", track.Title, "artist", track.Artist, "reason", result.Reason)
		}

		run.Results = append(run.Results, result)
		e.sendProgress(progress, resolvingUpdate(&run.Results[len(run.Results)-1], len(run.Results), total))
	}

	run.State = StateComplete
	e.sendProgress(progress, completeUpdate(run.Found(), total))
	e.logger.Info("conversion complete",
		"playlist", run.PlaylistName, "found", run.Found(), "total", total)

	return run, nil
}

// fail marks the run failed and reports the reason both ways.
func (e *Engine) fail(progress chan<- Update, run *Run, err error) (*Run, error) {
	run.State = StateFailed
	run.FailReason = err
	e.sendProgress(progress, failedUpdate(err))
	return run, err
}

// sendProgress delivers an update without ever blocking the pipeline.
func (e *Engine) sendProgress(progress chan<- Update, update Update) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
