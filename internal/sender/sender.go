// Package sender publishes assembled digests to their configured
// destinations. Output formats resolve to sender implementations through a
// static registry at configuration-validation time, so an unknown format
// fails the run before any network activity.
package sender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/lvanheel/teamdigest/internal/report"
)

var ErrNoSenderForFormat = errors.New("no sender registered for output format")

// ErrAlreadyPublished signals that the idempotency check found a prior
// publish of the same subject; the dispatcher records a skip, not a failure.
var ErrAlreadyPublished = errors.New("report already published")

// Options carries run-scoped collaborators into every sender.
type Options struct {
	DryRun  bool
	Verbose bool
	Logger  *slog.Logger
	// Diag receives fully rendered output during dry runs instead of the
	// destination.
	Diag io.Writer
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Diag == nil {
		o.Diag = os.Stdout
	}
	return o
}

// Sender performs the actual publish to one destination.
type Sender interface {
	Name() string
	Send(ctx context.Context, d *report.Digest) error
}

// Channel is one configured destination bound to its sender: the format tag
// it was registered under, the rendering format, and the project scope the
// assembler should cut for it.
type Channel struct {
	Tag    string
	Scope  string
	Format report.Format
	Sender Sender
}

type factory func(node yaml.Node, opts Options) ([]Channel, error)

// registry is the fixed enumeration of sender implementations, keyed by the
// configuration's format tag.
var registry = map[string]factory{
	"email": newEmailChannels,
	"wiki":  newWikiChannels,
	"excel": newExcelChannels,
}

// Known reports whether a format tag has a registered sender.
func Known(tag string) bool {
	_, ok := registry[tag]
	return ok
}

// Formats lists the registered format tags, sorted.
func Formats() []string {
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Build decodes a channel's settings and constructs its sender(s). A wiki
// block expands to one channel per configured title, everything else to one.
func Build(tag string, node yaml.Node, opts Options) ([]Channel, error) {
	f, ok := registry[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid choices: %v)", ErrNoSenderForFormat, tag, Formats())
	}
	return f(node, opts.withDefaults())
}

// Status is the per-channel outcome of a dispatch.
type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

type Result struct {
	Channel string
	Subject string
	Status  Status
	Err     error
}

// Route pairs an assembled digest with the channel it goes to.
type Route struct {
	Channel Channel
	Digest  *report.Digest
}

// Dispatcher walks routes sequentially, isolating failures: a transport
// error in one channel never prevents the remaining channels from being
// attempted. Empty digests are suppressed rather than sent.
type Dispatcher struct {
	Logger *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{Logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, routes []Route) []Result {
	results := make([]Result, 0, len(routes))
	for _, r := range routes {
		name := fmt.Sprintf("%s[%s]", r.Channel.Tag, r.Channel.Scope)
		res := Result{Channel: name, Subject: r.Digest.Subject}

		if r.Digest.Empty() {
			d.Logger.Info("nothing to send", "channel", name, "subject", r.Digest.Subject)
			res.Status = StatusSkipped
			results = append(results, res)
			continue
		}

		err := r.Channel.Sender.Send(ctx, r.Digest)
		switch {
		case errors.Is(err, ErrAlreadyPublished):
			d.Logger.Info("already published, skipping", "channel", name, "subject", r.Digest.Subject)
			res.Status = StatusSkipped
		case err != nil:
			d.Logger.Error("dispatch failed", "channel", name, "subject", r.Digest.Subject, "error", err)
			res.Status = StatusFailed
			res.Err = fmt.Errorf("%s: %w", name, err)
		default:
			d.Logger.Info("dispatched", "channel", name, "subject", r.Digest.Subject)
			res.Status = StatusSent
		}
		results = append(results, res)
	}
	return results
}

// Err folds dispatch results into a single error covering every failed
// channel, or nil when the run fully succeeded.
func Err(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Status == StatusFailed {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}
