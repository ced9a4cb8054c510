package navigation

import "time"

// Config holds the layout constants and timing windows of the synchronizer.
type Config struct {
	// MinRatio is the smallest intersection ratio that counts as visible.
	MinRatio float64
	// SettleDelay is how long a manual selection suppresses auto detection.
	SettleDelay time.Duration
	// StripSettleDelay is how long a tab-strip interaction suppresses the
	// strip's self-scroll.
	StripSettleDelay time.Duration
	// ScrollIdleDelay clears the scrolling flag after the last scroll event.
	ScrollIdleDelay time.Duration
	// HeaderOffset is the height of the sticky header above the tab bar.
	HeaderOffset float64
	// TabHeight is the height of the floating tab bar.
	TabHeight float64
	// ScrollGap is the space left between the tab bar and a section's top.
	ScrollGap float64
	// RevealMargin extends HeaderOffset to form the tab bar threshold.
	RevealMargin float64
}

// DefaultConfig returns the desktop layout.
func DefaultConfig() Config {
	return Config{
		MinRatio:         0.1,
		SettleDelay:      time.Second,
		StripSettleDelay: 800 * time.Millisecond,
		ScrollIdleDelay:  150 * time.Millisecond,
		HeaderOffset:     68,
		TabHeight:        56,
		ScrollGap:        16,
		RevealMargin:     50,
	}
}

func (c Config) scrollOffset() float64 {
	return c.TabHeight + c.HeaderOffset + c.ScrollGap
}

func (c Config) tabBarThreshold() float64 {
	return c.HeaderOffset + c.RevealMargin
}
