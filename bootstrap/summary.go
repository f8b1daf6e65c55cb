package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/inflight/component"
)

// Summary renders the startup report of a client process.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
}

// NewSummary creates a new startup summary.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Display writes the summary, including live health from the registry, to w.
func (s *Summary) Display(w io.Writer, registry *component.Registry) {
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n\n",
		s.serviceName, s.version, s.startupDuration.Seconds())

	if registry == nil {
		fmt.Fprintf(w, "   └── No components registered\n\n")
		return
	}
	components := registry.All()
	if len(components) == 0 {
		fmt.Fprintf(w, "   └── No components registered\n\n")
		return
	}

	fmt.Fprintf(w, "📦 Components\n")
	healthy := 0
	for i, c := range components {
		prefix := "├──"
		if i == len(components)-1 {
			prefix = "└──"
		}
		h := c.Health(context.Background())
		if h.Status == component.StatusHealthy {
			healthy++
		}

		line := fmt.Sprintf("   %s %s %s", prefix, healthStatusIcon(h.Status), c.Name())
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			if desc.Type != "" {
				line += " [" + desc.Type + "]"
			}
			if desc.Details != "" {
				line += " " + desc.Details
			}
		}
		if h.Status != component.StatusHealthy {
			line += " (" + strings.ToLower(string(h.Status))
			if h.Message != "" {
				line += ": " + h.Message
			}
			line += ")"
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "\n")

	if healthy == len(components) {
		fmt.Fprintf(w, "✅ All components healthy (%d/%d)\n\n", healthy, len(components))
	} else {
		fmt.Fprintf(w, "⚠️  Some components have issues (%d/%d healthy)\n\n", healthy, len(components))
	}
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
