package locator

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	goruntime "runtime"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/flowbind/errors"
	"github.com/wippyai/flowbind/native"
)

// Locator finds and opens the runtime library once. It is safe for
// concurrent use; the first successful Load wins and later calls return
// the same library.
type Locator struct {
	cfg    Config
	bundle fs.FS
	driver native.Driver
	goos   string

	mu       sync.Mutex
	lib      native.Library
	path     string
	strategy Strategy
}

// Option configures a Locator.
type Option func(*Locator)

// WithBundle supplies the resources searched by the bundled strategy.
// Libraries are looked up at native/<file name>, typically from an
// embed.FS.
func WithBundle(fsys fs.FS) Option {
	return func(l *Locator) {
		l.bundle = fsys
	}
}

// WithDriver uses d instead of looking up Config.Driver in the registry.
func WithDriver(d native.Driver) Option {
	return func(l *Locator) {
		l.driver = d
	}
}

// New creates a locator for cfg. Nothing is loaded until Load.
func New(cfg Config, opts ...Option) *Locator {
	l := &Locator{
		cfg:  cfg,
		goos: goruntime.GOOS,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var (
	defaultLocator *Locator
	defaultOnce    sync.Once
)

// Default returns the process-wide locator using DefaultConfig.
func Default() *Locator {
	defaultOnce.Do(func() {
		defaultLocator = New(DefaultConfig())
	})
	return defaultLocator
}

// Config returns the locator's configuration.
func (l *Locator) Config() Config {
	return l.cfg
}

// Loaded reports where the library was loaded from, if it was.
func (l *Locator) Loaded() (string, Strategy, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path, l.strategy, l.lib != nil
}

// MustLoad is like Load but panics on failure.
func (l *Locator) MustLoad(ctx context.Context) native.Library {
	lib, err := l.Load(ctx)
	if err != nil {
		panic(err)
	}
	return lib
}

// Load opens the runtime library, trying each configured strategy in
// order. A failed Load leaves the locator unloaded, so it may be retried.
func (l *Locator) Load(ctx context.Context) (native.Library, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lib != nil {
		return l.lib, nil
	}

	name := l.cfg.Name
	if name == "" {
		name = filepath.Base(l.cfg.Path)
	}
	if err := l.cfg.Validate(); err != nil {
		return nil, errors.LibraryLoad(name, err)
	}

	driver, err := l.resolveDriver()
	if err != nil {
		return nil, errors.LibraryLoad(name, err)
	}

	if l.cfg.Path != "" {
		lib, err := driver.Open(ctx, l.cfg.Path)
		if err != nil {
			Logger().Debug("pinned library failed", zap.String("path", l.cfg.Path), zap.Error(err))
			return nil, errors.LibraryLoad(name, fmt.Errorf("%s: %w", l.cfg.Path, err))
		}
		l.set(lib, l.cfg.Path, "")
		return lib, nil
	}

	file, err := l.fileName(driver)
	if err != nil {
		return nil, errors.LibraryLoad(name, err)
	}

	var errs error
	for _, s := range l.cfg.Strategies {
		if err := ctx.Err(); err != nil {
			return nil, errors.LibraryLoad(name, multierr.Append(errs, err))
		}

		Logger().Debug("trying strategy", zap.String("strategy", string(s)), zap.String("file", file))

		var (
			lib  native.Library
			from string
		)
		switch s {
		case StrategySystem:
			lib, from, err = l.loadSystem(ctx, driver, file)
		case StrategyBundled:
			lib, from, err = l.loadBundled(ctx, driver, file)
		case StrategyDev:
			lib, from, err = l.loadDev(ctx, driver, file)
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s, err))
			continue
		}

		l.set(lib, from, s)
		return lib, nil
	}

	Logger().Warn("runtime library not found", zap.String("file", file), zap.Error(errs))
	return nil, errors.LibraryLoad(name, errs)
}

func (l *Locator) set(lib native.Library, from string, s Strategy) {
	l.lib = lib
	l.path = from
	l.strategy = s
	Logger().Info("runtime library loaded",
		zap.String("path", from),
		zap.String("strategy", string(s)))
}

func (l *Locator) resolveDriver() (native.Driver, error) {
	if l.driver != nil {
		return l.driver, nil
	}
	return native.Lookup(l.cfg.Driver)
}

// fileName maps the logical name to the platform file name.
func (l *Locator) fileName(d native.Driver) (string, error) {
	if pattern, ok := l.cfg.PlatformNames[l.goos]; ok {
		return fmt.Sprintf(pattern, l.cfg.Name), nil
	}
	return d.FileName(l.cfg.Name, l.goos)
}

func (l *Locator) loadSystem(ctx context.Context, d native.Driver, file string) (native.Library, string, error) {
	lib, err := d.Open(ctx, file)
	return lib, file, err
}

// loadBundled extracts the bundled library to a temporary file. The file
// is removed once loaded except on Windows, where a loaded DLL cannot be
// deleted.
func (l *Locator) loadBundled(ctx context.Context, d native.Driver, file string) (native.Library, string, error) {
	if l.bundle == nil {
		return nil, "", fmt.Errorf("no bundled resources")
	}

	src, err := l.bundle.Open(path.Join("native", file))
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(l.cfg.TempDir, "flow-*-"+file)
	if err != nil {
		return nil, "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, "", fmt.Errorf("extract %s: %w", file, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, "", fmt.Errorf("extract %s: %w", file, err)
	}

	lib, err := d.Open(ctx, tmpPath)
	if err != nil || l.goos != "windows" {
		os.Remove(tmpPath)
	}
	if err != nil {
		return nil, "", err
	}
	return lib, tmpPath, nil
}

func (l *Locator) loadDev(ctx context.Context, d native.Driver, file string) (native.Library, string, error) {
	var errs error
	for _, dir := range l.cfg.DevPaths {
		candidate, err := filepath.Abs(filepath.Join(dir, file))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if _, err := os.Stat(candidate); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		lib, err := d.Open(ctx, candidate)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", candidate, err))
			continue
		}
		return lib, candidate, nil
	}
	if errs == nil {
		errs = fmt.Errorf("no development paths configured")
	}
	return nil, "", errs
}
