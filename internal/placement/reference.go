package placement

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Reference tracks the taskbar window and its tray element. When the shell
// restarts both go stale together, so they are always re-resolved as a pair.
type Reference struct {
	shell  Shell
	notify func()
	logger *zap.Logger

	handle Handle
	tray   Element
	watch  Subscription
}

// NewReference resolves the taskbar and starts watching the tray for
// structural changes. notify is handed to the watcher and runs off the
// event loop.
func NewReference(shell Shell, notify func(), logger *zap.Logger) (*Reference, error) {
	r := &Reference{shell: shell, notify: notify, logger: logger}
	if err := r.resolve(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reference) Handle() Handle { return r.handle }

func (r *Reference) Tray() Element { return r.tray }

// Shell returns the collaborator the reference resolves against.
func (r *Reference) Shell() Shell { return r.shell }

// Refresh re-resolves the taskbar handle and tray element, moving the
// structure watcher to the new element.
func (r *Reference) Refresh() error {
	r.logger.Warn("Taskbar handle is invalid (shell restarted?); re-resolving")
	r.closeWatch()
	return r.resolve()
}

// Do runs op against the current handle. If op reports ErrInvalidHandle the
// reference is refreshed and op retried once.
func (r *Reference) Do(op func(Handle) error) error {
	err := op(r.handle)
	if !errors.Is(err, ErrInvalidHandle) {
		return err
	}
	if rerr := r.Refresh(); rerr != nil {
		return rerr
	}
	return op(r.handle)
}

// DoTray is Do for operations on the tray element.
func (r *Reference) DoTray(op func(Element) error) error {
	err := op(r.tray)
	if !errors.Is(err, ErrInvalidHandle) {
		return err
	}
	if rerr := r.Refresh(); rerr != nil {
		return rerr
	}
	return op(r.tray)
}

// Close unregisters the structure watcher.
func (r *Reference) Close() error {
	if r.watch == nil {
		return nil
	}
	err := r.watch.Close()
	r.watch = nil
	return err
}

func (r *Reference) resolve() error {
	handle, tray, err := r.shell.FindTaskbar()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	r.handle, r.tray = handle, tray
	r.logger.Debug("Taskbar resolved",
		zap.Uint64("handle", uint64(handle)),
		zap.String("tray", tray.Name()),
	)

	if r.notify == nil {
		return nil
	}
	watch, err := r.shell.WatchStructure(tray, r.notify)
	if err != nil {
		// Tray changes go unnoticed until the next display change.
		r.logger.Error("Failed to watch tray structure", zap.String("tray", tray.Name()), zap.Error(err))
		return nil
	}
	r.watch = watch
	return nil
}

func (r *Reference) closeWatch() {
	if err := r.Close(); err != nil {
		r.logger.Warn("Failed to unregister tray watcher", zap.Error(err))
	}
}
