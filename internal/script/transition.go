package script

import (
	"fmt"
	"strings"
)

// Next computes the step that follows block on pageID given the caller's input.
//
// Precedence: exact option match, then the vx-any wildcard (only for non-empty
// input), then linear fallthrough in document order, then hangup. Next is pure;
// identical arguments always give the same step.
func (s *Script) Next(pageID string, block Block, input string) (StepID, error) {
	input = strings.TrimSpace(input)

	if len(block.Options) > 0 {
		for _, o := range block.Options {
			if o.Value == input && o.Next != "" {
				return ParseStepID(o.Next)
			}
		}
		if input != "" {
			for _, o := range block.Options {
				if o.Value == WildcardValue && o.Next != "" {
					return ParseStepID(o.Next)
				}
			}
		}
	}

	return s.Fallthrough(pageID, block.ID)
}

// Fallthrough returns the block after blockID in document order: the next block
// on the same page, else the first block of the next non-empty page, else hangup.
func (s *Script) Fallthrough(pageID, blockID string) (StepID, error) {
	pageIdx := -1
	for i, p := range s.Pages {
		if p.ID == pageID {
			pageIdx = i
			break
		}
	}
	if pageIdx < 0 {
		return StepID{}, fmt.Errorf("%w: unknown page %q", ErrMalformedScript, pageID)
	}

	page := s.Pages[pageIdx]
	blockIdx := -1
	for i, bid := range page.Blocks {
		if bid == blockID {
			blockIdx = i
			break
		}
	}
	if blockIdx < 0 {
		return StepID{}, fmt.Errorf("%w: block %q is not on page %q", ErrMalformedScript, blockID, pageID)
	}

	if blockIdx+1 < len(page.Blocks) {
		return Step(page.ID, page.Blocks[blockIdx+1]), nil
	}
	for _, p := range s.Pages[pageIdx+1:] {
		if len(p.Blocks) > 0 {
			return Step(p.ID, p.Blocks[0]), nil
		}
	}
	return Hangup, nil
}
