package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-captions/internal/caption"
)

// BatchResult is the outcome of one video in a batch.
type BatchResult struct {
	VideoPath string
	Output    Output
	Err       error
}

// GenerateAll runs Generate for each video with at most parallel runs in
// flight, and returns results in input order. One failing video never
// cancels the others.
//
// A video that repeats an earlier input, or that would write the same
// caption files as an earlier input, is not run; its result carries
// ErrDuplicateInput.
func (p *Pipeline) GenerateAll(ctx context.Context, videoPaths []string, cfg Config, parallel int) []BatchResult {
	results := make([]BatchResult, len(videoPaths))

	var g errgroup.Group
	g.SetLimit(max(parallel, 1))

	claimed := make(map[string]string, len(videoPaths)*2)
	for i, videoPath := range videoPaths {
		results[i].VideoPath = videoPath
		if err := p.claim(claimed, videoPath); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			out, err := p.Generate(ctx, videoPath, cfg)
			results[i].Output, results[i].Err = out, err
			return nil
		})
	}
	_ = g.Wait() // goroutines report through results
	return results
}

// claim records the absolute input and caption paths of videoPath, failing
// when another input already owns one of them.
func (p *Pipeline) claim(claimed map[string]string, videoPath string) error {
	keys := []string{
		videoPath,
		p.paths(videoPath, caption.FormatSRT.Extension()),
		p.paths(videoPath, caption.FormatVTT.Extension()),
	}
	for i, k := range keys {
		abs, err := filepath.Abs(k)
		if err != nil {
			abs = filepath.Clean(k)
		}
		if owner, ok := claimed[abs]; ok {
			return fmt.Errorf("%w: %s collides with %s", ErrDuplicateInput, videoPath, owner)
		}
		keys[i] = abs
	}
	for _, k := range keys {
		claimed[k] = videoPath
	}
	return nil
}
