package dashboard

import (
	"fmt"
	"strings"
	"time"
)

const (
	statusThrottle  = 60 * time.Second
	refreshInterval = 30 * time.Second
)

// StatusDashboard renders a live view of the assistant into one message in
// the log channel.
type StatusDashboard struct {
	session      Session
	logChannelID string
	version      string
	startTime    time.Time
	gather       func() Snapshot
	cache        *MessageCache
	stop         chan struct{}
}

// NewStatusDashboard creates the assistant status dashboard. gather is
// called on each refresh to collect the current snapshot.
func NewStatusDashboard(session Session, logChannelID, version string, gather func() Snapshot) *StatusDashboard {
	return &StatusDashboard{
		session:      session,
		logChannelID: logChannelID,
		version:      version,
		startTime:    time.Now(),
		gather:       gather,
		cache: &MessageCache{
			ThrottleDuration: statusThrottle,
		},
		stop: make(chan struct{}),
	}
}

// Init creates the dashboard message and starts the refresh loop.
func (d *StatusDashboard) Init() error {
	msg, err := d.session.ChannelMessageSend(d.logChannelID, d.formatBootMessage())
	if err != nil {
		return fmt.Errorf("could not create status dashboard: %w", err)
	}

	d.cache.MessageID = msg.ID
	d.cache.Content = msg.Content
	d.cache.LastUpdate = time.Now()
	d.cache.LastAPIUpdate = time.Now()

	go d.refreshLoop()
	return nil
}

// Update refreshes the dashboard content (throttled).
func (d *StatusDashboard) Update() error {
	return d.cache.Update(d.session, d.logChannelID, d.format(d.gather()))
}

// ForceUpdate bypasses throttle and updates immediately.
func (d *StatusDashboard) ForceUpdate() error {
	return d.cache.Flush(d.session, d.logChannelID, d.format(d.gather()))
}

// Finalize marks the dashboard offline and stops the refresh loop.
func (d *StatusDashboard) Finalize() error {
	close(d.stop)
	content := fmt.Sprintf("**Dexter Assistant** `%s`\n\n⏹️ **Status:** Offline\n\n_Shut down at %s_",
		d.version, time.Now().Format("15:04:05 MST"))
	return d.cache.Flush(d.session, d.logChannelID, content)
}

func (d *StatusDashboard) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			_ = d.Update()
		}
	}
}

func (d *StatusDashboard) formatBootMessage() string {
	return fmt.Sprintf("**Dexter Assistant** `%s`\n\n🔄 **Status:** Starting up...", d.version)
}

func (d *StatusDashboard) format(snap Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Dexter Assistant** `%s`\n\n", d.version)
	fmt.Fprintf(&b, "✅ **Status:** Running\n")
	fmt.Fprintf(&b, "🕒 **Uptime:** %s\n", time.Since(d.startTime).Round(time.Second))
	fmt.Fprintf(&b, "🧠 **Provider:** `%s`\n", snap.Provider)
	fmt.Fprintf(&b, "📖 **Reading sessions:** %d | 🔌 **Gateway clients:** %d | 🗂️ **Queue:** %d\n",
		snap.ReadingSessions, snap.GatewayClients, snap.QueueDepth)
	fmt.Fprintf(&b, "💻 **CPU:** %.1f%% | **MEM:** %.1f%%", snap.CPUPercent, snap.MemPercent)
	if snap.GPULine != "" {
		fmt.Fprintf(&b, " | %s", snap.GPULine)
	}
	b.WriteString("\n")

	if len(snap.Dependencies) > 0 {
		b.WriteString("\n**Dependencies:**\n")
		for _, name := range snap.Dependencies {
			fmt.Fprintf(&b, "- %s: %s\n", name, snap.Statuses[name])
		}
	}

	fmt.Fprintf(&b, "\n_Last updated: %s_", time.Now().Format("15:04:05 MST"))
	return b.String()
}
