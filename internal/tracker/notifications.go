package tracker

import "fmt"

// Kind enumerates the notification types the tracker emits.
type Kind int

const (
	// KindGenreDiscovered announces the first observation of a genre name.
	KindGenreDiscovered Kind = iota
	// KindCredit reports seconds credited for a tick.
	KindCredit
	// KindError reports a sampler or store failure; the loop continues.
	KindError
)

// Notification is a human-readable event for the UI collaborator.
type Notification struct {
	Kind    Kind
	Message string
	Genre   string
	Seconds int64
	Err     error
}

// genreNote is the constructor for [KindGenreDiscovered]
func genreNote(name string) Notification {
	return Notification{
		Kind:    KindGenreDiscovered,
		Genre:   name,
		Message: fmt.Sprintf("New genre discovered: %s", name),
	}
}

// creditNote is the constructor for [KindCredit]
func creditNote(title string, seconds int64) Notification {
	return Notification{
		Kind:    KindCredit,
		Seconds: seconds,
		Message: fmt.Sprintf("Credited %ds listening to %q", seconds, title),
	}
}

// errorNote is the constructor for [KindError]
func errorNote(err error) Notification {
	return Notification{
		Kind:    KindError,
		Err:     err,
		Message: fmt.Sprintf("Tracking error: %v", err),
	}
}
