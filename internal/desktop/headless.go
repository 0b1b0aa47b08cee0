package desktop

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/infoband/internal/config"
	"github.com/sanspareilsmyn/infoband/internal/placement"
)

type trayElement struct {
	name string
}

func (e trayElement) Name() string { return e.name }

// Shell is a desktop shell without a display. It reports a single
// bottom-docked taskbar sized from configuration, and can be restarted,
// resized and restacked at runtime so the overlay logic runs end to end.
type Shell struct {
	logger *zap.Logger

	mu        sync.Mutex
	width     int32
	height    int32
	taskbarH  int32
	trayWidth int32
	dpi       uint32
	handle    placement.Handle
	topmost   bool
	watchers  map[int]func()
	nextWatch int
}

func NewShell(cfg config.DesktopConfig, logger *zap.Logger) *Shell {
	return &Shell{
		logger:    logger,
		width:     int32(cfg.ScreenWidth),
		height:    int32(cfg.ScreenHeight),
		taskbarH:  int32(cfg.TaskbarHeight),
		trayWidth: int32(cfg.TrayWidth),
		dpi:       uint32(cfg.DPI),
		handle:    1,
		topmost:   true,
		watchers:  make(map[int]func()),
	}
}

func (s *Shell) trayLocked() placement.Element {
	return trayElement{name: fmt.Sprintf("tray@%d", s.handle)}
}

func (s *Shell) checkLocked(h placement.Handle) error {
	if h != s.handle {
		return placement.ErrInvalidHandle
	}
	return nil
}

func (s *Shell) FindTaskbar() (placement.Handle, placement.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle, s.trayLocked(), nil
}

func (s *Shell) IsTopmost(h placement.Handle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(h); err != nil {
		return false, err
	}
	return s.topmost, nil
}

func (s *Shell) TaskbarRect(h placement.Handle) (placement.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(h); err != nil {
		return placement.Rect{}, err
	}
	return placement.Rect{Left: 0, Top: s.height - s.taskbarH, Right: s.width, Bottom: s.height}, nil
}

func (s *Shell) DPI(h placement.Handle) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(h); err != nil {
		return 0, err
	}
	return s.dpi, nil
}

func (s *Shell) FirstTrayButton(tray placement.Element) (placement.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tray == nil || tray.Name() != s.trayLocked().Name() {
		return placement.Rect{}, placement.ErrInvalidHandle
	}
	if s.trayWidth <= 0 {
		return placement.Rect{}, placement.ErrNotFound
	}
	left := s.width - s.trayWidth
	return placement.Rect{Left: left, Top: s.height - s.taskbarH, Right: left + s.taskbarH, Bottom: s.height}, nil
}

func (s *Shell) WatchStructure(tray placement.Element, notify func()) (placement.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tray == nil || tray.Name() != s.trayLocked().Name() {
		return nil, placement.ErrInvalidHandle
	}
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = notify
	return &watch{shell: s, id: id}, nil
}

// Watchers returns the number of registered structure watchers.
func (s *Shell) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// SetTaskbarTopmost changes the taskbar's stacking order, as a fullscreen
// application would.
func (s *Shell) SetTaskbarTopmost(topmost bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topmost = topmost
}

// SetTrayWidth resizes the tray and notifies structure watchers from a
// separate goroutine.
func (s *Shell) SetTrayWidth(px int) {
	s.mu.Lock()
	s.trayWidth = int32(px)
	notify := make([]func(), 0, len(s.watchers))
	for _, f := range s.watchers {
		notify = append(notify, f)
	}
	s.mu.Unlock()

	s.logger.Debug("Tray resized", zap.Int("width", px), zap.Int("watchers", len(notify)))
	go func() {
		for _, f := range notify {
			f()
		}
	}()
}

// SetDPI changes the DPI reported for the taskbar.
func (s *Shell) SetDPI(dpi uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dpi = dpi
}

// Restart simulates the shell process restarting: the old handle and tray
// element become invalid and existing watchers stop firing.
func (s *Shell) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle++
	s.watchers = make(map[int]func())
	s.logger.Info("Shell restarted", zap.Uint64("handle", uint64(s.handle)))
}

type watch struct {
	shell *Shell
	id    int
	once  sync.Once
}

func (w *watch) Close() error {
	w.once.Do(func() {
		w.shell.mu.Lock()
		delete(w.shell.watchers, w.id)
		w.shell.mu.Unlock()
	})
	return nil
}

// Window is the overlay window on a headless desktop. It only records the
// stacking calls made against it.
type Window struct {
	logger *zap.Logger

	mu       sync.Mutex
	touches  int
	stacking int
	topmost  bool
}

func NewWindow(logger *zap.Logger) *Window {
	return &Window{logger: logger}
}

func (w *Window) Touch() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touches++
	return nil
}

func (w *Window) SetTopmost(topmost bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stacking++
	w.topmost = topmost
	w.logger.Debug("Window restacked", zap.Bool("topmost", topmost))
	return nil
}

// Topmost returns the last applied stacking order.
func (w *Window) Topmost() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.topmost
}

// StackingCalls returns how many times SetTopmost was called.
func (w *Window) StackingCalls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stacking
}

// Touches returns how many times Touch was called.
func (w *Window) Touches() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.touches
}
