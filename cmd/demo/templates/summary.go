package templates

import "time"

// Summary is everything the end-of-run report shows.
type Summary struct {
	Mode string
	Took time.Duration

	Frames          uint64
	WallTime        float64
	SimTime         float64
	Messages        uint64
	PeakMessages    int
	Steps           uint64
	DroppedFrames   uint64
	TruncatedFrames uint64
	Deferred        uint64

	SubsStarted uint64
	SubsStopped uint64
	SubsFailed  uint64

	Particles int
	Spawned   int
	Expired   int
	Bounces   int
	Emitters  []string

	Announcements []string

	Saved          bool
	SavedParticles int
	SaveErr        string
}
