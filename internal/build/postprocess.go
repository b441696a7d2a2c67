package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/piza/prejst/internal/config"
	"github.com/piza/prejst/internal/errors"
	"github.com/piza/prejst/internal/minify"
)

// Mode selects the post-processing pass applied to a written artifact.
type Mode int

const (
	ModeMinify Mode = iota
	ModeBeautify
)

func (m Mode) String() string {
	if m == ModeBeautify {
		return "beautify"
	}
	return "minify"
}

// ModeFor returns minify when cfg asks for minification outside debug mode,
// beautify otherwise.
func ModeFor(cfg *config.Config) Mode {
	if cfg.Minify && !cfg.Debug {
		return ModeMinify
	}
	return ModeBeautify
}

// preservedComments keeps the metadata header and the version tag.
var preservedComments = regexp.MustCompile(`PREJST:|^v:\d+`)

// minifyOptions returns the fixed option set for mode.
func minifyOptions(mode Mode, charset string) minify.Options {
	opts := minify.Options{
		// AMD and CMD loaders scan for literal require calls.
		Reserved: []string{"require"},
		Comments: preservedComments,
		Warnings: false,
		Charset:  charset,
	}
	if mode == ModeBeautify {
		opts.Beautify = true
		return opts
	}
	opts.Mangle = true
	opts.ASCIIOnly = true
	return opts
}

// Write creates the parent directories of path and writes text encoded in
// charset.
func Write(path, text, charset string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.ArtifactWriteError(path, err)
	}

	data, err := encode(text, charset)
	if err != nil {
		return errors.ArtifactWriteError(path, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.ArtifactWriteError(path, err)
	}
	return nil
}

// Postprocess runs the minifier over the artifact at path and replaces it
// with the result. A failure is logged and returned as a recoverable error;
// the file on disk is left as it was.
func (p *Project) Postprocess(ctx context.Context, path string, mode Mode) error {
	res, err := p.minifier.Minify(path, minifyOptions(mode, p.Config.Charset))
	if err != nil {
		line, column := 0, 0
		var minErr *minify.Error
		if errors.As(err, &minErr) {
			line, column = minErr.Line, minErr.Column
		}

		perr := errors.MinifyError(path, line, column, err)
		p.logger.Warn(ctx, perr, "Post-processing failed, keeping unprocessed artifact",
			"mode", mode.String(), "file", path, "line", line)
		return perr
	}

	if err := Write(path, res.Output, p.Config.Charset); err != nil {
		p.logger.Warn(ctx, err, "Failed to write post-processed artifact", "file", path)
		return errors.MinifyError(path, 0, 0, fmt.Errorf("write result: %w", err))
	}

	p.logger.Debug(ctx, "Post-processed artifact", "mode", mode.String(), "file", path)
	return nil
}
