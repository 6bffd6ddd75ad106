// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package extractor

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"sourcemapx.safepic.fr/sourcemap"
)

// DocumentResult is the outcome of one map file in a batch. Exactly one of
// Report and Err is set.
type DocumentResult struct {
	Input  string
	Report *Report
	Err    error
}

// BatchReport aggregates a RunBatch call.
type BatchReport struct {
	Documents     []DocumentResult
	Loaded        int
	NotAMap       int
	MissingFields int
	Totals        Report
}

// RunBatch loads and extracts every input. workers <= 1 processes inputs
// sequentially in order; larger values bound the number of documents in
// flight. Results keep input order either way. Cancellation is only checked
// between documents.
func (e *Extractor) RunBatch(ctx context.Context, inputs []string, workers int) (*BatchReport, error) {
	results := make([]DocumentResult, len(inputs))
	done := make([]bool, len(inputs))

	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, in := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.runOne(in)
			done[i] = true
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	br := &BatchReport{}
	for i, res := range results {
		if !done[i] {
			continue
		}
		br.Documents = append(br.Documents, res)
		switch {
		case res.Err == nil:
			br.Loaded++
			br.Totals.Merge(res.Report)
		case errors.Is(res.Err, sourcemap.ErrMissingFields):
			br.MissingFields++
		default:
			br.NotAMap++
		}
	}
	return br, err
}

func (e *Extractor) runOne(input string) DocumentResult {
	doc, err := e.loader.LoadFile(input)
	if err != nil {
		msg := "Failed to parse sourcemap. Are you sure this is a sourcemap?"
		if errors.Is(err, sourcemap.ErrMissingFields) {
			msg = "Sourcemap cannot be extracted"
		}
		e.log.WithField("map", input).WithError(err).Error(msg)
		return DocumentResult{Input: input, Err: err}
	}
	return DocumentResult{Input: input, Report: e.Extract(doc)}
}
