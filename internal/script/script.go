package script

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedScript marks structural problems in a script document. These are
// never retried; a call cannot continue on a broken script.
var ErrMalformedScript = errors.New("script: malformed")

// BlockType says how a block's AudioFile is interpreted.
type BlockType string

const (
	// BlockRecorded blocks reference an audio object in workspace storage.
	BlockRecorded BlockType = "recorded"
	// BlockSynthetic blocks carry literal text for text-to-speech.
	BlockSynthetic BlockType = "synthetic"
)

// ResponseType says which caller input a block collects.
type ResponseType string

const (
	ResponseNone       ResponseType = ""
	ResponseDTMF       ResponseType = "dtmf"
	ResponseSpeech     ResponseType = "speech"
	ResponseDTMFSpeech ResponseType = "dtmf speech"
)

// WildcardValue matches any non-empty input when no option matches exactly.
const WildcardValue = "vx-any"

// Option maps one caller answer to the next step. Next is "pageId:blockId",
// "hangup" or empty (fall through).
type Option struct {
	Value string `json:"value"`
	Next  string `json:"next"`
}

type Block struct {
	ID           string       `json:"id"`
	Type         BlockType    `json:"type"`
	Title        string       `json:"title"`
	AudioFile    string       `json:"audioFile"`
	ResponseType ResponseType `json:"responseType"`
	Options      []Option     `json:"options"`
}

type Page struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Blocks []string `json:"blocks"`
}

// Script is the immutable graph for one IVR campaign. Page order is the order
// pages appear in the stored document and drives fallthrough between pages.
type Script struct {
	Pages  []Page
	Blocks map[string]Block
}

// Parse decodes a stored script.steps document and validates it.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedScript, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Script) UnmarshalJSON(data []byte) error {
	var raw struct {
		Pages  json.RawMessage  `json:"pages"`
		Blocks map[string]Block `json:"blocks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pages, err := decodePages(raw.Pages)
	if err != nil {
		return err
	}
	for id, b := range raw.Blocks {
		if b.ID == "" {
			b.ID = id
			raw.Blocks[id] = b
		}
	}
	s.Pages = pages
	s.Blocks = raw.Blocks
	return nil
}

// decodePages accepts the object form keyed by page id (order preserved) as
// well as a plain array of pages.
func decodePages(data json.RawMessage) ([]Page, error) {
	if len(bytes.TrimSpace(data)) == 0 || string(data) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch tok {
	case json.Delim('['):
		var pages []Page
		if err := json.Unmarshal(data, &pages); err != nil {
			return nil, err
		}
		return pages, nil
	case json.Delim('{'):
	default:
		return nil, errors.New("pages must be an object or array")
	}

	var pages []Page
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.New("page key must be a string")
		}
		var p Page
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("page %q: %w", key, err)
		}
		if p.ID == "" {
			p.ID = key
		}
		pages = append(pages, p)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return pages, nil
}

// Validate checks that every page references known blocks and every option
// target resolves to a known page/block or hangup.
func (s *Script) Validate() error {
	var errs []error
	if len(s.Pages) == 0 {
		errs = append(errs, errors.New("script has no pages"))
	}
	for _, p := range s.Pages {
		for _, bid := range p.Blocks {
			if _, ok := s.Blocks[bid]; !ok {
				errs = append(errs, fmt.Errorf("page %q references unknown block %q", p.ID, bid))
			}
		}
	}
	for id, b := range s.Blocks {
		for _, o := range b.Options {
			if o.Next == "" {
				continue
			}
			next, err := ParseStepID(o.Next)
			if err != nil {
				errs = append(errs, fmt.Errorf("block %q option %q: bad next %q", id, o.Value, o.Next))
				continue
			}
			if next.IsHangup() {
				continue
			}
			if _, ok := s.Page(next.Page); !ok {
				errs = append(errs, fmt.Errorf("block %q option %q: unknown page %q", id, o.Value, next.Page))
			}
			if _, ok := s.Blocks[next.Block]; !ok {
				errs = append(errs, fmt.Errorf("block %q option %q: unknown block %q", id, o.Value, next.Block))
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrMalformedScript, errors.Join(errs...))
}

func (s *Script) Page(id string) (Page, bool) {
	for _, p := range s.Pages {
		if p.ID == id {
			return p, true
		}
	}
	return Page{}, false
}

func (s *Script) Block(id string) (Block, bool) {
	b, ok := s.Blocks[id]
	return b, ok
}

// First returns the first block of the first non-empty page, or hangup for an
// empty script.
func (s *Script) First() StepID {
	for _, p := range s.Pages {
		if len(p.Blocks) > 0 {
			return Step(p.ID, p.Blocks[0])
		}
	}
	return Hangup
}

// Resolve returns the page and block a step points at.
func (s *Script) Resolve(step StepID) (Page, Block, error) {
	if step.Kind != KindStep {
		return Page{}, Block{}, fmt.Errorf("%w: cannot resolve step %q", ErrMalformedScript, step)
	}
	p, ok := s.Page(step.Page)
	if !ok {
		return Page{}, Block{}, fmt.Errorf("%w: unknown page %q", ErrMalformedScript, step.Page)
	}
	b, ok := s.Blocks[step.Block]
	if !ok {
		return Page{}, Block{}, fmt.Errorf("%w: unknown block %q", ErrMalformedScript, step.Block)
	}
	return p, b, nil
}
