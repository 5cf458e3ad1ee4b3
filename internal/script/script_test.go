package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PreservesPageOrder(t *testing.T) {
	s := mustParse(t, `{"pages":{
		"page_9":{"blocks":["b1"]},
		"page_1":{"blocks":["b2"]}},
		"blocks":{"b1":{"type":"synthetic"},"b2":{"type":"synthetic"}}}`)

	require.Len(t, s.Pages, 2)
	assert.Equal(t, "page_9", s.Pages[0].ID)
	assert.Equal(t, "page_1", s.Pages[1].ID)
	assert.Equal(t, Step("page_9", "b1"), s.First())

	b, ok := s.Block("b2")
	require.True(t, ok)
	assert.Equal(t, "b2", b.ID, "block id defaults to its key")
}

func TestParse_AcceptsPageArray(t *testing.T) {
	s := mustParse(t, `{"pages":[{"id":"p1","blocks":["b1"]}],"blocks":{"b1":{"id":"b1"}}}`)
	assert.Equal(t, Step("p1", "b1"), s.First())
}

func TestParse_RejectsDanglingReferences(t *testing.T) {
	_, err := Parse([]byte(`{"pages":{"p1":{"blocks":["missing"]}},"blocks":{}}`))
	assert.ErrorIs(t, err, ErrMalformedScript)

	_, err = Parse([]byte(`{"pages":{"p1":{"blocks":["b1"]}},
		"blocks":{"b1":{"options":[{"value":"1","next":"p2:b1"}]}}}`))
	assert.ErrorIs(t, err, ErrMalformedScript)

	_, err = Parse([]byte(`{"pages":{"p1":{"blocks":["b1"]}},
		"blocks":{"b1":{"options":[{"value":"1","next":"nonsense"}]}}}`))
	assert.ErrorIs(t, err, ErrMalformedScript)
}

func TestParse_RejectsEmptyScript(t *testing.T) {
	_, err := Parse([]byte(`{"pages":{},"blocks":{}}`))
	assert.ErrorIs(t, err, ErrMalformedScript)

	_, err = Parse([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedScript)
}

func TestParseStepID(t *testing.T) {
	s, err := ParseStepID("page_1:block_2")
	require.NoError(t, err)
	assert.Equal(t, Step("page_1", "block_2"), s)
	assert.Equal(t, "page_1:block_2", s.String())

	h, err := ParseStepID("hangup")
	require.NoError(t, err)
	assert.True(t, h.IsHangup())
	assert.Equal(t, "hangup", h.String())

	for _, bad := range []string{"", "page_1", ":block", "page:"} {
		_, err := ParseStepID(bad)
		assert.ErrorIs(t, err, ErrMalformedScript, bad)
	}
}

func TestResolve(t *testing.T) {
	s := mustParse(t, menuScript)

	p, b, err := s.Resolve(Step("page_2", "block_4"))
	require.NoError(t, err)
	assert.Equal(t, "Survey", p.Title)
	assert.Equal(t, "Last", b.Title)

	_, _, err = s.Resolve(Hangup)
	assert.ErrorIs(t, err, ErrMalformedScript)
}
