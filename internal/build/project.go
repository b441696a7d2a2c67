// Package build compiles a template tree into one namespaced AMD runtime
// module. A Project is opened once per session; it gates the build on the
// version recorded in the project manifest, walks the tree, assembles and
// writes the artifact, and post-processes it. Progress is reported as Events
// to subscribed observers.
package build

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/piza/prejst/internal/config"
	"github.com/piza/prejst/internal/errors"
	"github.com/piza/prejst/internal/jst"
	"github.com/piza/prejst/internal/logging"
	"github.com/piza/prejst/internal/manifest"
	"github.com/piza/prejst/internal/minify"
	"github.com/piza/prejst/internal/version"
)

const (
	// DebugFile is a leftover of debug sessions, removed on open.
	DebugFile = ".debug.js"
	// CacheDir holds combo-mode intermediates under the output directory.
	CacheDir = ".cache"
)

// Options supplies the collaborators of a Project. Zero values select the
// defaults.
type Options struct {
	Compiler Compiler
	Minifier minify.Minifier
	Logger   logging.Logger
	// Version is the running tool version checked against the manifest.
	Version string
	// Cwd is the directory relative output overrides are resolved from.
	Cwd string
}

// Project is one template tree with its merged configuration.
type Project struct {
	// Base is the absolute template source root.
	Base string
	// Output is the absolute output directory.
	Output string
	// Runtime is the absolute artifact path, always under Output.
	Runtime string
	Config  *config.Config

	manifest *manifest.Manifest
	stored   map[string]interface{}
	compiler Compiler
	minifier minify.Minifier
	logger   logging.Logger
	version  string
	cwd      string
	hashes   *contentHashes
	bus      *eventBus

	// mu serialises build passes and reconfiguration.
	mu sync.Mutex
}

// Open loads the project rooted at base. It fails with an
// ERR_INCOMPATIBLE_VERSION config error, before anything is written, when
// the manifest requires a newer tool than opts.Version.
func Open(ctx context.Context, base string, overrides config.Overrides, opts Options) (*Project, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.Compiler == nil {
		opts.Compiler = jst.NewCompiler()
	}
	if opts.Minifier == nil {
		opts.Minifier = minify.New()
	}
	if opts.Version == "" {
		opts.Version = version.GetVersion()
	}
	if opts.Cwd == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errors.NewInternalError(errors.ErrCodeInternalError, "failed to resolve working directory", err)
		}
		opts.Cwd = cwd
	}

	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "invalid template directory").
			WithLocation(base, 0, 0)
	}
	if info, err := os.Stat(absBase); err != nil || !info.IsDir() {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "template directory does not exist").
			WithLocation(absBase, 0, 0)
	}

	logger := opts.Logger.WithComponent("build")

	m, err := manifest.Load(absBase)
	if err != nil {
		return nil, err
	}

	if err := version.CheckCompatibility(opts.Version, m.RequiredVersion()); err != nil {
		logger.Error(ctx, err, "You must upgrade to the latest version of prejst",
			"local", opts.Version, "target", m.RequiredVersion())
		return nil, err
	}
	m.SetRequiredVersion(opts.Version)

	p := &Project{
		Base:     absBase,
		manifest: m,
		stored:   m.Config(),
		compiler: opts.Compiler,
		minifier: opts.Minifier,
		logger:   logger,
		version:  opts.Version,
		cwd:      opts.Cwd,
		hashes:   newContentHashes(),
		bus:      newEventBus(),
	}

	if err := p.configure(overrides); err != nil {
		return nil, err
	}

	p.clear(ctx)

	return p, nil
}

// Reconfigure merges overrides over the config block read at Open and
// recomputes Output and Runtime.
func (p *Project) Reconfigure(overrides config.Overrides) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.configure(overrides); err != nil {
		return err
	}
	p.hashes.reset()
	return nil
}

func (p *Project) configure(overrides config.Overrides) error {
	cfg, err := config.Merge(p.stored, overrides, p.Base, p.cwd)
	if err != nil {
		return errors.New(errors.ErrorTypeConfig, errors.ErrCodeConfigInvalid, "invalid configuration", err).
			WithLocation(p.manifest.Path(), 0, 0)
	}

	p.Config = cfg
	p.manifest.SetConfig(cfg.ToMap())
	p.Output = cfg.OutputDir(p.Base)
	p.Runtime = cfg.RuntimePath(p.Base)
	return nil
}

// Manifest returns the project manifest.
func (p *Project) Manifest() *manifest.Manifest {
	return p.manifest
}

// Version returns the tool version recorded into the manifest.
func (p *Project) Version() string {
	return p.version
}

// Subscribe registers o for every event the project emits and returns a
// function that removes it.
func (p *Project) Subscribe(o Observer) func() {
	return p.bus.subscribe(o)
}

// SaveConfig writes the manifest back. The prejst-config block holds only
// the user settings of the merged config.
func (p *Project) SaveConfig() (string, error) {
	if err := p.manifest.Save(); err != nil {
		return "", err
	}
	return p.manifest.Path(), nil
}

// clear removes files left behind by earlier sessions.
func (p *Project) clear(ctx context.Context) {
	debugFile := filepath.Join(p.Base, DebugFile)
	if err := os.Remove(debugFile); err != nil && !os.IsNotExist(err) {
		p.logger.Warn(ctx, err, "Failed to remove debug file", "file", debugFile)
	}

	if p.Config.Combo {
		return
	}
	cacheDir := filepath.Join(p.Output, CacheDir)
	if err := os.RemoveAll(cacheDir); err != nil {
		p.logger.Warn(ctx, err, "Failed to remove cache directory", "dir", cacheDir)
	}
}
