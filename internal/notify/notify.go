// Package notify shows playback notices to the user.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"yatravoice/internal/cli/scheme/colours"
	"yatravoice/internal/domain/speech"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Notifier receives notices. It matches playback.Notifier.
type Notifier interface {
	Notify(n speech.Notification)
}

// Toast prints notices to a terminal. Repeats of the same message within
// the dedupe window are dropped.
type Toast struct {
	out    io.Writer
	log    logrus.FieldLogger
	window time.Duration

	mu       sync.Mutex
	lastMsg  string
	lastTime time.Time
	now      func() time.Time
}

const DefaultDedupeWindow = 4 * time.Second

func NewToast(out io.Writer, log logrus.FieldLogger) *Toast {
	if out == nil {
		out = os.Stderr
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Toast{
		out:    out,
		log:    log.WithField("component", "notify"),
		window: DefaultDedupeWindow,
		now:    time.Now,
	}
}

func (t *Toast) Notify(n speech.Notification) {
	t.mu.Lock()
	now := t.now()
	if n.Message == t.lastMsg && now.Sub(t.lastTime) < t.window {
		t.mu.Unlock()
		return
	}
	t.lastMsg, t.lastTime = n.Message, now
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{
		"kind":     n.Kind,
		"index":    n.MessageIndex,
		"language": n.Language,
	}).Debug("Notifying user")

	fmt.Fprintln(t.out, style(n.Kind).Sprintf("%s %s", icon(n.Kind), n.Message))
}

func style(kind speech.NotificationKind) *color.Color {
	switch kind {
	case speech.NotifyNetwork, speech.NotifyBlocked:
		return colours.Warning
	default:
		return colours.Error
	}
}

func icon(kind speech.NotificationKind) string {
	switch kind {
	case speech.NotifyBlocked:
		return "🔇"
	case speech.NotifyNetwork:
		return "🌐"
	default:
		return "❌"
	}
}

// Fanout forwards every notice to all its notifiers in order.
type Fanout []Notifier

func (f Fanout) Notify(n speech.Notification) {
	for _, target := range f {
		if target != nil {
			target.Notify(n)
		}
	}
}

// Func adapts a function to Notifier.
type Func func(n speech.Notification)

func (f Func) Notify(n speech.Notification) {
	f(n)
}
