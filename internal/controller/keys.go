package controller

// Key codes as sent by Qt based simulator GUIs on the keypress topic.
const (
	KeyHome     int32 = 16777232
	KeyLeft     int32 = 16777234
	KeyUp       int32 = 16777235
	KeyRight    int32 = 16777236
	KeyDown     int32 = 16777237
	KeyPageUp   int32 = 16777238
	KeyPageDown int32 = 16777239
	KeyF1       int32 = 16777264
	KeyF5       int32 = 16777268
	KeyF6       int32 = 16777269
)

// Action is what a key press asks of the presentation.
type Action int

const (
	Ignore Action = iota
	Next
	Previous
	// Home returns the camera to its initial pose.
	Home
	// Current replays the current keyframe without moving the cursor.
	Current
	// First restarts at the first keyframe.
	First
)

func (a Action) String() string {
	switch a {
	case Next:
		return "next"
	case Previous:
		return "previous"
	case Home:
		return "home"
	case Current:
		return "current"
	case First:
		return "first"
	}
	return "ignore"
}

// ActionFor maps a key code to its action. Presentation remotes send
// PageUp and PageDown, keyboards the arrows.
func ActionFor(code int32) Action {
	switch code {
	case KeyRight, KeyDown, KeyPageDown:
		return Next
	case KeyLeft, KeyUp, KeyPageUp:
		return Previous
	case KeyF6, KeyHome:
		return Home
	case KeyF1:
		return Current
	case KeyF5:
		return First
	}
	return Ignore
}

// KeyFor returns a key code that triggers a, for clients that name actions
// rather than keys.
func KeyFor(a Action) (int32, bool) {
	switch a {
	case Next:
		return KeyRight, true
	case Previous:
		return KeyLeft, true
	case Home:
		return KeyF6, true
	case Current:
		return KeyF1, true
	case First:
		return KeyF5, true
	}
	return 0, false
}

// ParseAction reads an action name as printed by Action.String. "prev" is
// accepted for Previous.
func ParseAction(s string) (Action, bool) {
	if s == "prev" {
		return Previous, true
	}
	for a := Next; a <= First; a++ {
		if a.String() == s {
			return a, true
		}
	}
	return Ignore, false
}
