package build

import (
	"context"
	"time"

	"github.com/piza/prejst/internal/logging"
)

// BuildResult is the outcome of one BuildAll pass.
type BuildResult struct {
	// Code is the artifact text as written, before post-processing.
	Code     string
	Entries  []CompiledEntry
	Errors   []error
	Duration time.Duration
}

// BuildAll compiles every template, writes the artifact to Runtime and
// post-processes it. Template and post-processing failures are reported in
// BuildResult.Errors; only manifest and artifact write failures are
// returned. Only one build runs at a time per Project.
func (p *Project) BuildAll(ctx context.Context, metadata Metadata) (*BuildResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	perf := logging.StartOperation(p.logger, "build_all")
	result := &BuildResult{}

	if metadata == nil {
		metadata = Metadata{}
	}

	body, entries, errs := p.Walk(ctx)
	result.Entries = entries
	result.Errors = errs

	if err := ctx.Err(); err != nil {
		result.Duration = perf.EndWithError(ctx, err)
		return result, err
	}

	code, err := Assemble(body, metadata)
	if err != nil {
		result.Duration = perf.EndWithError(ctx, err)
		return result, err
	}
	result.Code = code

	if _, err := p.SaveConfig(); err != nil {
		result.Duration = perf.EndWithError(ctx, err)
		return result, err
	}

	if err := Write(p.Runtime, code, p.Config.Charset); err != nil {
		p.logger.Error(ctx, err, "Failed to write artifact", "file", p.Runtime)
		p.bus.emit(CompileEvent{Version: metadata.Version(), Err: err})
		result.Duration = perf.EndWithError(ctx, err)
		return result, err
	}

	if err := ctx.Err(); err != nil {
		result.Duration = perf.EndWithError(ctx, err)
		return result, err
	}

	if err := p.Postprocess(ctx, p.Runtime, ModeFor(p.Config)); err != nil {
		result.Errors = append(result.Errors, err)
	}

	p.bus.emit(CompileEvent{Version: metadata.Version()})
	result.Duration = perf.End(ctx)

	p.logger.Debug(ctx, "Build completed",
		"runtime", p.Runtime,
		"templates", len(result.Entries),
		"errors", len(result.Errors),
		"duration", result.Duration)

	return result, nil
}
