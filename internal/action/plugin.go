package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/gazescroll/internal/plugin"
)

// KeyboardPlugin is the name of the plugin that presses keys.
const KeyboardPlugin = "keyboard"

// KeystrokeAction is the plugin action sent for every key press.
const KeystrokeAction = "keystroke"

// PluginExecutor presses keys by running the keyboard plugin.
type PluginExecutor struct {
	manager  *plugin.Manager
	executor *plugin.Executor
	name     string
}

// NewPluginExecutor creates a PluginExecutor using plugins discovered by manager.
func NewPluginExecutor(manager *plugin.Manager, executor *plugin.Executor) *PluginExecutor {
	return &PluginExecutor{
		manager:  manager,
		executor: executor,
		name:     KeyboardPlugin,
	}
}

type keyParams struct {
	Key string `json:"key"`
}

// Press sends a keystroke request for key to the keyboard plugin.
func (e *PluginExecutor) Press(ctx context.Context, key Key) error {
	if _, err := ParseKey(string(key)); err != nil {
		return err
	}

	p, err := e.manager.Resolve(e.name, KeystrokeAction)
	if err != nil {
		return fmt.Errorf("resolve plugin: %w", err)
	}

	params, err := json.Marshal(keyParams{Key: string(key)})
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	resp, err := e.executor.Execute(ctx, p, &plugin.Request{
		Action: KeystrokeAction,
		Params: params,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New("keyboard plugin: " + resp.Error)
	}
	return nil
}
