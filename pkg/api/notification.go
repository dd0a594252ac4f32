package api

import (
	"fmt"
	"strings"
	"time"
)

// Severity of a notification. Values match collectd's NOTIF_* constants.
type Severity int

const (
	SeverityFailure Severity = 1
	SeverityWarning Severity = 2
	SeverityOkay    Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityFailure:
		return "FAILURE"
	case SeverityWarning:
		return "WARNING"
	case SeverityOkay:
		return "OKAY"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ParseSeverity parses a severity name, ignoring case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "failure":
		return SeverityFailure, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "okay", "ok":
		return SeverityOkay, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Notification is a message about a state change, e.g. a threshold crossed.
type Notification struct {
	Identifier
	Severity Severity
	Time     time.Time
	Message  string
	Meta     Meta
}

// Validate checks the notification can be converted to a notification_t.
func (n *Notification) Validate() error {
	switch n.Severity {
	case SeverityFailure, SeverityWarning, SeverityOkay:
	default:
		return &FieldError{Field: "severity", Err: fmt.Errorf("unknown severity %d", int(n.Severity))}
	}
	if err := CheckArray(n.Message, NotifMaxMsgLen); err != nil {
		return &FieldError{Field: "message", Err: err}
	}
	if err := n.Identifier.validate(); err != nil {
		return err
	}
	if n.Meta != nil {
		if err := n.Meta.Validate(); err != nil {
			return &FieldError{Field: "meta", Err: err}
		}
	}
	return nil
}

// NotificationBuilder assembles a notification and submits it to the daemon.
type NotificationBuilder struct {
	n Notification
}

// NewNotificationBuilder starts a notification from the given plugin.
func NewNotificationBuilder(plugin string, severity Severity, message string) *NotificationBuilder {
	return &NotificationBuilder{n: Notification{
		Identifier: Identifier{Plugin: plugin},
		Severity:   severity,
		Message:    message,
	}}
}

func (b *NotificationBuilder) Host(s string) *NotificationBuilder {
	b.n.Host = s
	return b
}

func (b *NotificationBuilder) PluginInstance(s string) *NotificationBuilder {
	b.n.PluginInstance = s
	return b
}

func (b *NotificationBuilder) Type(s string) *NotificationBuilder {
	b.n.Type = s
	return b
}

func (b *NotificationBuilder) TypeInstance(s string) *NotificationBuilder {
	b.n.TypeInstance = s
	return b
}

// Time sets the notification time. Left zero, Build uses the current time.
func (b *NotificationBuilder) Time(t time.Time) *NotificationBuilder {
	b.n.Time = t
	return b
}

func (b *NotificationBuilder) Metadata(key string, value any) *NotificationBuilder {
	if b.n.Meta == nil {
		b.n.Meta = Meta{}
	}
	if err := b.n.Meta.Set(key, value); err != nil {
		// kept raw so Build reports it
		b.n.Meta[key] = value
	}
	return b
}

// Build validates and returns the notification.
func (b *NotificationBuilder) Build() (Notification, error) {
	n := b.n
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	if err := n.Validate(); err != nil {
		return Notification{}, err
	}
	return n, nil
}

// Submit validates the notification and dispatches it.
func (b *NotificationBuilder) Submit() error {
	n, err := b.Build()
	if err != nil {
		return err
	}
	return CurrentDispatcher().DispatchNotification(n)
}
