package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const menuScript = `{
  "pages": {
    "page_1": {"id": "page_1", "title": "Intro", "blocks": ["block_1", "block_2", "block_3"]},
    "page_2": {"id": "page_2", "title": "Survey", "blocks": ["block_4"]}
  },
  "blocks": {
    "block_1": {"id": "block_1", "type": "synthetic", "title": "Menu", "audioFile": "Press 1",
      "responseType": "dtmf",
      "options": [{"value": "1", "next": "page_1:block_2"}, {"value": "vx-any", "next": "page_1:block_3"}]},
    "block_2": {"id": "block_2", "type": "synthetic", "title": "Thanks", "audioFile": "Thanks", "options": []},
    "block_3": {"id": "block_3", "type": "recorded", "title": "Other", "audioFile": "other.mp3", "options": []},
    "block_4": {"id": "block_4", "type": "synthetic", "title": "Last", "audioFile": "Bye",
      "responseType": "dtmf", "options": [{"value": "2", "next": "page_1:block_1"}]}
  }
}`

func mustParse(t *testing.T, doc string) *Script {
	t.Helper()
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	return s
}

func TestNext_ExactMatchBeatsWildcard(t *testing.T) {
	s := mustParse(t, menuScript)
	b, _ := s.Block("block_1")

	next, err := s.Next("page_1", b, "1")
	require.NoError(t, err)
	assert.Equal(t, Step("page_1", "block_2"), next)

	// surrounding whitespace is trimmed before matching
	next, err = s.Next("page_1", b, " 1 ")
	require.NoError(t, err)
	assert.Equal(t, Step("page_1", "block_2"), next)
}

func TestNext_WildcardFallback(t *testing.T) {
	s := mustParse(t, menuScript)
	b, _ := s.Block("block_1")

	next, err := s.Next("page_1", b, "9")
	require.NoError(t, err)
	assert.Equal(t, Step("page_1", "block_3"), next)
}

func TestNext_WildcardNeedsInput(t *testing.T) {
	s := mustParse(t, menuScript)
	b, _ := s.Block("block_1")

	next, err := s.Next("page_1", b, "   ")
	require.NoError(t, err)
	assert.Equal(t, Step("page_1", "block_2"), next, "empty input falls through to the next block")
}

func TestNext_LinearFallthrough(t *testing.T) {
	s := mustParse(t, menuScript)
	b, _ := s.Block("block_2")

	for _, in := range []string{"", "1", "anything"} {
		next, err := s.Next("page_1", b, in)
		require.NoError(t, err)
		assert.Equal(t, Step("page_1", "block_3"), next)
	}
}

func TestNext_CrossesToNextPage(t *testing.T) {
	s := mustParse(t, menuScript)
	b, _ := s.Block("block_3")

	next, err := s.Next("page_1", b, "")
	require.NoError(t, err)
	assert.Equal(t, Step("page_2", "block_4"), next)
}

func TestNext_LastBlockHangsUp(t *testing.T) {
	s := mustParse(t, menuScript)
	b, _ := s.Block("block_4")

	next, err := s.Next("page_2", b, "7")
	require.NoError(t, err)
	assert.True(t, next.IsHangup())

	next, err = s.Next("page_2", b, "2")
	require.NoError(t, err)
	assert.Equal(t, Step("page_1", "block_1"), next)
}

func TestNext_IsDeterministic(t *testing.T) {
	s := mustParse(t, menuScript)
	b, _ := s.Block("block_1")

	first, err := s.Next("page_1", b, "9")
	require.NoError(t, err)
	second, err := s.Next("page_1", b, "9")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNext_SinglePageSingleBlock(t *testing.T) {
	s := mustParse(t, `{"pages":{"page_1":{"blocks":["block_1"]}},
		"blocks":{"block_1":{"id":"block_1","type":"synthetic","audioFile":"Hi","options":[]}}}`)
	b, _ := s.Block("block_1")

	next, err := s.Next("page_1", b, "")
	require.NoError(t, err)
	assert.Equal(t, Hangup, next)
}

func TestFallthrough_UnknownBlock(t *testing.T) {
	s := mustParse(t, menuScript)
	_, err := s.Fallthrough("page_2", "block_1")
	assert.ErrorIs(t, err, ErrMalformedScript)
}
