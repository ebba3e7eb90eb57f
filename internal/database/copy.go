package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/lawnchairsociety/roomgen/internal/logger"
)

// CopyResult counts the layouts handled by CopyLayouts.
type CopyResult struct {
	Copied  int
	Skipped int
}

// CopyLayouts copies every layout in src to dst, oldest first. Layouts whose
// digest dst already holds are skipped. With dryRun nothing is written and
// every layout not yet in dst counts as copied.
func CopyLayouts(ctx context.Context, src, dst *Database, dryRun bool) (CopyResult, error) {
	var res CopyResult

	summaries, err := src.ListLayouts(ctx, 0)
	if err != nil {
		return res, err
	}

	// ListLayouts is newest first
	for i := len(summaries) - 1; i >= 0; i-- {
		s := summaries[i]

		if _, err := dst.FindLayoutByDigest(ctx, s.Digest); err == nil {
			res.Skipped++
			continue
		} else if !errors.Is(err, ErrLayoutNotFound) {
			return res, err
		}

		if dryRun {
			res.Copied++
			continue
		}

		doc, err := src.GetLayout(ctx, s.ID)
		if err != nil {
			return res, fmt.Errorf("failed to read layout %d: %w", s.ID, err)
		}
		id, err := dst.SaveLayout(ctx, doc)
		if errors.Is(err, ErrLayoutExists) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("failed to copy layout %d: %w", s.ID, err)
		}
		logger.Debug("layout copied", "source_id", s.ID, "dest_id", id, "digest", s.Digest)
		res.Copied++
	}

	return res, nil
}
