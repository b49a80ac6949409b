package notification

import (
	"sort"
	"strconv"
	"strings"
)

// Config holds the dispatch layer configuration. All options are optional;
// the zero value dispatches inline, email-only, without CSS inlining.
type Config struct {
	// SiteURL is the absolute base URL used to build links in messages.
	SiteURL string `env:"NOTIFICATION_SITE_URL" envDefault:"http://localhost"`

	// NoticesPath and SettingsPath are the site routes for the notice list
	// and the notice settings pages.
	NoticesPath  string `env:"NOTIFICATION_NOTICES_PATH" envDefault:"/notices/"`
	SettingsPath string `env:"NOTIFICATION_SETTINGS_PATH" envDefault:"/notices/settings/"`

	// SubjectPrefix is prepended to every outgoing email subject.
	SubjectPrefix string `env:"NOTIFICATION_SUBJECT_PREFIX"`

	// DefaultFrom is the sender address used when a dispatch does not
	// specify one.
	DefaultFrom string `env:"NOTIFICATION_DEFAULT_FROM"`

	// ChannelDefaults maps each known channel to its sensitivity
	// threshold. A channel is opted in by default for a notice type when
	// its threshold does not exceed the type's default sensitivity.
	ChannelDefaults map[string]int `env:"NOTIFICATION_CHANNEL_DEFAULTS" envDefault:"email:2"`

	// UseQueue gates deferred dispatch: "true" queues everything, "false"
	// queues nothing, and a comma-separated list of task names queues only
	// those operations.
	UseQueue QueuePolicy `env:"NOTIFICATION_USE_QUEUE" envDefault:"false"`

	// QueuePerRecipient splits a queued batch into one task per recipient
	// instead of a single task for the whole fan-out.
	QueuePerRecipient bool `env:"NOTIFICATION_QUEUE_PER_RECIPIENT" envDefault:"false"`

	// UseInliner enables CSS inlining of HTML email bodies.
	UseInliner bool `env:"NOTIFICATION_USE_INLINER" envDefault:"false"`
}

// Thresholds converts ChannelDefaults into the typed map the preference
// store consumes.
func (c Config) Thresholds() map[Channel]int {
	defaults := make(map[Channel]int, len(c.ChannelDefaults))
	for ch, threshold := range c.ChannelDefaults {
		defaults[Channel(ch)] = threshold
	}
	return defaults
}

// QueuePolicy decides whether a named operation goes through the
// asynchronous executor. It is either a blanket boolean or a set of task
// names, mirroring the environment value it is parsed from.
type QueuePolicy struct {
	all   bool
	tasks map[string]struct{}
}

// QueueAll is the policy that queues every operation.
func QueueAll() QueuePolicy {
	return QueuePolicy{all: true}
}

// QueueNone is the policy that queues nothing.
func QueueNone() QueuePolicy {
	return QueuePolicy{}
}

// QueueOnly queues only the named tasks.
func QueueOnly(names ...string) QueuePolicy {
	tasks := make(map[string]struct{}, len(names))
	for _, name := range names {
		tasks[name] = struct{}{}
	}
	return QueuePolicy{tasks: tasks}
}

// Allows reports whether the named task should be queued.
func (p QueuePolicy) Allows(task string) bool {
	if p.all {
		return true
	}
	_, ok := p.tasks[task]
	return ok
}

// UnmarshalText parses "true"/"false" or a comma-separated task name list.
func (p *QueuePolicy) UnmarshalText(text []byte) error {
	value := strings.TrimSpace(string(text))
	if value == "" {
		*p = QueueNone()
		return nil
	}
	if b, err := strconv.ParseBool(value); err == nil {
		if b {
			*p = QueueAll()
		} else {
			*p = QueueNone()
		}
		return nil
	}

	var names []string
	for _, name := range strings.Split(value, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	*p = QueueOnly(names...)
	return nil
}

// MarshalText renders the policy back into its environment form.
func (p QueuePolicy) MarshalText() ([]byte, error) {
	if p.all {
		return []byte("true"), nil
	}
	if len(p.tasks) == 0 {
		return []byte("false"), nil
	}
	names := make([]string, 0, len(p.tasks))
	for name := range p.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return []byte(strings.Join(names, ",")), nil
}
