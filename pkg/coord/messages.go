package coord

import "time"

// Kind is the tag carried by every message.
type Kind string

const (
	KindUpdate   Kind = "update"
	KindDelete   Kind = "delete"
	KindDelay    Kind = "delay"
	KindThreads  Kind = "threads"
	KindExit     Kind = "exit"
	KindPing     Kind = "ping"
	KindOnline   Kind = "online"
	KindRepaired Kind = "repaired"
	KindReport   Kind = "report"
)

// Message is the closed set of values exchanged between the session and the
// monitor. Only types in this package implement it.
type Message interface {
	Kind() Kind
	sealed()
}

// Update mirrors a link's short URL and intended target into the monitor.
type Update struct {
	ShortURL string
	Alias    string
	Target   string
	Domain   string
}

// Delete removes a link. The session sends it to stop monitoring a link and
// the monitor sends it back when a link was purged as permanently broken.
type Delete struct {
	ID       int
	Alias    string
	ShortURL string
	Reason   string
}

// Delay changes the sweep interval.
type Delay struct {
	Interval time.Duration
}

// Threads resizes the monitor's worker pool.
type Threads struct {
	Workers int
}

// Exit stops the monitor for good.
type Exit struct{}

// Ping forces a sweep regardless of the timer.
type Ping struct{}

// Online pauses or resumes scheduled sweeps.
type Online struct {
	Enabled bool
}

// Repaired reports a link the monitor moved to a new target.
type Repaired struct {
	Alias     string
	ShortURL  string
	NewDomain string
	NewURL    string
	Tier      int
}

// Report carries the outcome of one sweep and its repair phase.
type Report struct {
	SweepReport
}

// SweepReport aggregates one sweep.
type SweepReport struct {
	SweepID       string
	Started       time.Time
	Duration      time.Duration
	Checked       int
	Healthy       int
	Errors        map[string]string // short URL -> diagnostic
	PreviewErrors map[string]string // short URL -> expected domain
	Incomplete    []string
	Repaired      []string
	Purged        []string
}

func (Update) Kind() Kind   { return KindUpdate }
func (Delete) Kind() Kind   { return KindDelete }
func (Delay) Kind() Kind    { return KindDelay }
func (Threads) Kind() Kind  { return KindThreads }
func (Exit) Kind() Kind     { return KindExit }
func (Ping) Kind() Kind     { return KindPing }
func (Online) Kind() Kind   { return KindOnline }
func (Repaired) Kind() Kind { return KindRepaired }
func (Report) Kind() Kind   { return KindReport }

func (Update) sealed()   {}
func (Delete) sealed()   {}
func (Delay) sealed()    {}
func (Threads) sealed()  {}
func (Exit) sealed()     {}
func (Ping) sealed()     {}
func (Online) sealed()   {}
func (Repaired) sealed() {}
func (Report) sealed()   {}
