package transcribe

import (
	"strings"
	"time"
)

// Fragment is one unit of recognized text: a finalized chunk result from a
// streaming session or a timed segment from a batch decode.
type Fragment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Transcript collects fragments in emission order and renders them as a
// single line.
//
// Fragments with empty text are dropped when the transcript is rendered
// unless KeepEmpty is set, in which case every fragment takes part in the
// join and empty ones only contribute their separator.
type Transcript struct {
	KeepEmpty bool

	fragments []Fragment
}

// Add appends f. Fragments are never reordered.
func (t *Transcript) Add(f Fragment) {
	t.fragments = append(t.fragments, f)
}

// Fragments returns the collected fragments in emission order.
func (t *Transcript) Fragments() []Fragment {
	out := make([]Fragment, len(t.fragments))
	copy(out, t.fragments)
	return out
}

// String joins the fragment texts with a single space and trims the result.
func (t *Transcript) String() string {
	return Join(t.fragments, t.KeepEmpty)
}

// Join renders fragments the way Transcript.String does.
func Join(fragments []Fragment, keepEmpty bool) string {
	texts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f.Text == "" && !keepEmpty {
			continue
		}
		texts = append(texts, f.Text)
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}
