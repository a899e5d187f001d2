package workflow

import (
	"context"
	"fmt"

	"contentpub/internal/config"
	"contentpub/internal/fileutil"
	"contentpub/internal/history"
	"contentpub/internal/launcher"
	"contentpub/internal/monitor"
	"contentpub/internal/prompt"
	"contentpub/internal/services"
)

// IndexUpdate runs the search index update for env. An empty env asks the
// operator; cancelling does nothing. A missing executable aborts before any
// record exists.
func (m *Manager) IndexUpdate(ctx context.Context, env string) (monitor.Event, error) {
	task := history.IndexUpdate
	if env == "" {
		choice, err := m.prompter.ChooseEnvironment(config.Environments(), m.cfg.Index.DefaultEnvironment)
		if err != nil {
			return monitor.Event{}, m.fail(ctx, task, err)
		}
		if choice == "" {
			m.prompter.Notify(prompt.LevelInfo, "Index Update", "No environment selected.")
			return monitor.Event{}, nil
		}
		env = choice
	}

	exe, err := m.cfg.IndexExecutable(env)
	if err != nil {
		return monitor.Event{}, m.fail(ctx, task, services.Wrap(services.ErrValidation, task.Title, "environment", "", err))
	}
	env = config.CanonicalEnvironment(env)
	if exe == "" || !fileutil.Exists(exe) {
		err := services.Wrap(services.ErrNotFound, task.Title, "launch", fmt.Sprintf("%s executable %q", env, exe), launcher.ErrLaunchNotFound)
		return monitor.Event{}, m.fail(ctx, task, err)
	}

	h, err := m.Tracker(ctx, task).Begin(ctx, history.Fields{
		history.FieldEnvironment: env,
		history.FieldExecutable:  exe,
	})
	if err != nil {
		return monitor.Event{}, m.fail(ctx, task, err)
	}

	events, err := m.start(ctx, task, h, launcher.Spec{Path: exe}, env, nil, history.StatusFailed)
	if err != nil {
		return monitor.Event{}, m.fail(ctx, task, err)
	}
	m.prompter.Notify(prompt.LevelInfo, "Index Update Started", "Updating the "+env+" search index. Do not close its window.")
	return m.Loop(ctx, events)
}
