package adgate

// LoadState is the state of the load lifecycle.
type LoadState string

const (
	NotLoaded LoadState = "not_loaded"
	Loaded    LoadState = "loaded"
	Failed    LoadState = "failed"
)

// LoadEventType is the closed set of load events.
type LoadEventType string

const (
	LoadEventLoaded LoadEventType = "loaded"
	LoadEventError  LoadEventType = "load_error"
)

// LoadEvent is reported by the SDK during a load.
type LoadEvent struct {
	Type LoadEventType
	Err  error
}

// ShowEventType is the closed set of show events.
type ShowEventType string

const (
	ShowEventRequested    ShowEventType = "requested"
	ShowEventRewardEarned ShowEventType = "reward_earned"
	ShowEventFailedToShow ShowEventType = "failed_to_show"
	ShowEventDismissed    ShowEventType = "dismissed"
	ShowEventError        ShowEventType = "show_error"
)

// ShowEvent is reported by the SDK during a show.
type ShowEvent struct {
	Type ShowEventType
	Err  error
}

// ShowOutcome is the single terminal result of one show attempt.
type ShowOutcome string

const (
	RewardEarned ShowOutcome = "reward_earned"
	FailedToShow ShowOutcome = "failed_to_show"
	Dismissed    ShowOutcome = "dismissed"
)

// outcome maps a show event to its terminal outcome. requested is not
// terminal.
func (e ShowEvent) outcome() (ShowOutcome, bool) {
	switch e.Type {
	case ShowEventRewardEarned:
		return RewardEarned, true
	case ShowEventDismissed:
		return Dismissed, true
	case ShowEventFailedToShow, ShowEventError:
		return FailedToShow, true
	default:
		return "", false
	}
}
