package teamdigest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/lvanheel/teamdigest/internal/config"
	"github.com/lvanheel/teamdigest/internal/report"
	"github.com/lvanheel/teamdigest/internal/sender"
	"github.com/lvanheel/teamdigest/internal/window"
)

// Options are the run-scoped switches from the CLI.
type Options struct {
	DryRun     bool
	Verbose    bool
	NumWindows int
	// Diag receives rendered output during dry runs; defaults to stdout.
	Diag io.Writer
}

// Application wires one run: the task source, bucketer, assembler and
// dispatcher, with a logger scoped to the run instead of process-wide
// state.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Source    report.TaskSource
	Templates *report.Templates

	opts Options

	// Now is the run's reference clock, overridable in tests.
	Now func() time.Time

	// Progress marks the start of a long fetch phase and returns its
	// finisher; the CLI hangs a spinner off it.
	Progress func(description string) func()
}

func New(cfg *config.Config, source report.TaskSource, opts Options) *Application {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if opts.Diag == nil {
		opts.Diag = os.Stdout
	}
	if opts.NumWindows < 1 {
		opts.NumWindows = 1
	}

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Source:    source,
		Templates: report.NewTemplates(cfg.TemplateDir),
		opts:      opts,
		Now:       time.Now,
		Progress:  func(string) func() { return func() {} },
	}
}

// Run executes every configured report definition. Channel-level transport
// failures are isolated per channel and folded into the returned results;
// configuration, timestamp-parse and fetch failures abort the run.
func (app *Application) Run(ctx context.Context) ([]sender.Result, error) {
	var all []sender.Result
	for _, name := range app.Config.ReportNames() {
		rep := app.Config.Reports[name]
		if rep == nil {
			continue
		}
		app.Logger.Info("creating report", "definition", name, "name", rep.Name)
		results, err := app.runReport(ctx, rep)
		all = append(all, results...)
		if err != nil {
			return all, fmt.Errorf("%s: %w", name, err)
		}
		app.Logger.Info("finished creating report", "definition", name)
	}
	return all, sender.Err(all)
}

func (app *Application) runReport(ctx context.Context, rep *config.Report) ([]sender.Result, error) {
	freq, err := window.ParseFrequency(rep.Frequency)
	if err != nil {
		return nil, err
	}
	windows, err := window.BuildSet(freq, app.Now(), app.opts.NumWindows)
	if err != nil {
		return nil, err
	}

	// Resolve every channel to its sender before any network activity so a
	// bad output block fails the run up front.
	channels, err := app.buildChannels(rep)
	if err != nil {
		return nil, err
	}

	bucketer := report.NewBucketer(windows, rep.TeamMembers, rep.IgnoreProjects, app.Logger)
	bucketer.KeepEmptySections = rep.KeepEmpty()

	tasks, err := app.fetchTasks(ctx, bucketer)
	if err != nil {
		return nil, err
	}
	app.Logger.Info("tasks fetched", "count", len(tasks))

	bucket, err := bucketer.Bucket(tasks)
	if err != nil {
		return nil, err
	}

	var routes []sender.Route
	for _, w := range windows {
		for _, ch := range channels {
			digest, err := report.Assemble(bucket, w, rep.Name, ch.Scope, ch.Format, app.Templates)
			if err != nil {
				return nil, err
			}
			routes = append(routes, sender.Route{Channel: ch, Digest: digest})
		}
	}

	dispatcher := sender.NewDispatcher(app.Logger)
	return dispatcher.Dispatch(ctx, routes), nil
}

func (app *Application) buildChannels(rep *config.Report) ([]sender.Channel, error) {
	opts := sender.Options{
		DryRun:  app.opts.DryRun,
		Verbose: app.opts.Verbose,
		Logger:  app.Logger,
		Diag:    app.opts.Diag,
	}

	tags := make([]string, 0, len(rep.Output))
	for tag := range rep.Output {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	var channels []sender.Channel
	for _, tag := range tags {
		chs, err := sender.Build(tag, rep.Output[tag], opts)
		if err != nil {
			return nil, err
		}
		channels = append(channels, chs...)
	}
	return channels, nil
}

// fetchTasks walks workspaces, projects and task listings, then fetches
// each task's full record. Ignored projects are skipped before their task
// lists are ever requested.
func (app *Application) fetchTasks(ctx context.Context, bucketer *report.Bucketer) ([]report.Task, error) {
	if err := app.Source.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("%s is unavailable: %w", app.Source.Name(), err)
	}

	done := app.Progress("Fetching tasks from " + app.Source.Name())
	defer done()

	workspaces, err := app.Source.Workspaces(ctx)
	if err != nil {
		return nil, err
	}

	var all []report.Task
	for _, ws := range workspaces {
		app.Logger.Info("workspace", "name", ws.Name)
		projects, err := app.Source.Projects(ctx, ws.ID)
		if err != nil {
			return nil, err
		}
		for _, project := range projects {
			if bucketer.IgnoredProject(project.Name) {
				app.Logger.Debug("skipping ignored project", "project", project.Name)
				continue
			}
			app.Logger.Info("parsing project", "project", project.Name)
			refs, err := app.Source.Tasks(ctx, project.ID)
			if err != nil {
				return nil, err
			}
			for _, ref := range refs {
				task, err := app.Source.Task(ctx, ref.ID)
				if err != nil {
					return nil, err
				}
				task.Project = project.Name
				all = append(all, task)
			}
		}
	}
	return all, nil
}
