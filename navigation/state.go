package navigation

import "fmt"

// Phase is the synchronizer's position in its state machine.
type Phase int

const (
	// Idle means no categories are tracked.
	Idle Phase = iota
	// AutoTracking lets visibility signals move the active category.
	AutoTracking
	// ManualOverride ignores visibility signals until the settle delay of the
	// latest manual selection expires.
	ManualOverride
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case AutoTracking:
		return "auto-tracking"
	case ManualOverride:
		return "manual-override"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	for _, candidate := range []Phase{Idle, AutoTracking, ManualOverride} {
		if candidate.String() == string(b) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Source identifies where a manual selection came from.
type Source int

const (
	// SourceTab is a click on a button of the category tab strip.
	SourceTab Source = iota
	// SourceExternal is a selection made outside the strip, e.g. a link.
	SourceExternal
)

// State is the navigation state consumers render.
type State struct {
	ActiveCategoryID     string `json:"activeCategoryId"`
	Phase                Phase  `json:"phase"`
	ManualOverrideActive bool   `json:"manualOverrideActive"`
	IsScrolling          bool   `json:"isScrolling"`
	TabBarVisible        bool   `json:"tabBarVisible"`
}
