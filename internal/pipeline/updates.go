package pipeline

import "fmt"

// Phase identifies where in a conversion run an update was emitted.
type Phase int

const (
	PhaseStarted Phase = iota
	PhaseFetching
	PhaseResolving
	PhaseComplete
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseStarted:
		return "started"
	case PhaseFetching:
		return "fetching"
	case PhaseResolving:
		return "resolving"
	case PhaseComplete:
		return "complete"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Update is one progress event from a conversion run. Result is non-nil only
// for PhaseResolving updates, where it carries the track that just resolved.
type Update struct {
	Phase     Phase
	Message   string
	Completed int
	Total     int
	Result    *MatchResult
}

func startedUpdate(ref string) Update {
	return Update{Phase: PhaseStarted, Message: fmt.Sprintf("converting %s", ref)}
}

func fetchingUpdate(playlistID string) Update {
	return Update{Phase: PhaseFetching, Message: fmt.Sprintf("reading playlist %s", playlistID)}
}

func resolvingUpdate(result *MatchResult, completed, total int) Update {
	return Update{
		Phase:     PhaseResolving,
		Message:   fmt.Sprintf("resolved %d/%d", completed, total),
		Completed: completed,
		Total:     total,
		Result:    result,
	}
}

func completeUpdate(found, total int) Update {
	return Update{
		Phase:     PhaseComplete,
		Message:   fmt.Sprintf("matched %d of %d tracks", found, total),
		Completed: total,
		Total:     total,
	}
}

func failedUpdate(err error) Update {
	return Update{Phase: PhaseFailed, Message: err.Error()}
}
