package editor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sitecms/internal/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryCoversTypedPayloads(t *testing.T) {
	reg := DefaultRegistry()
	for _, typ := range content.KnownTypes() {
		_, ok := reg.Lookup(typ)
		assert.True(t, ok, "missing template for %s", typ)
	}
	tmpl, _ := reg.Lookup(content.TypeTeamMembers)
	assert.True(t, tmpl.IsArray())
	assert.Equal(t, "members", tmpl.ArrayKey)

	hero, _ := reg.Lookup(content.TypeHero)
	assert.False(t, hero.IsArray())
}

func TestArrayEditorMutationsAreImmutableCopies(t *testing.T) {
	tmpl, _ := DefaultRegistry().Lookup(content.TypeFeatureList)
	var updates [][]map[string]any
	arr := NewArrayEditor(tmpl, []map[string]any{{"title": "Fast", "description": "d"}}, func(recs []map[string]any) {
		updates = append(updates, recs)
	})

	before := arr.Items()
	added := arr.Add()
	assert.Equal(t, "New feature", added.Fields["title"])
	assert.Equal(t, "", added.Fields["description"])
	assert.True(t, strings.HasPrefix(added.Key, "local-"))
	assert.NotEqual(t, before[0].Key, added.Key)

	require.NoError(t, arr.Edit(1, "description", "Secure"))
	assert.Equal(t, "Secure", arr.Items()[1].Fields["description"])
	assert.Equal(t, "", added.Fields["description"], "returned items are copies")
	assert.Equal(t, "Fast", updates[1][0]["title"])

	require.NoError(t, arr.Delete(0))
	assert.Equal(t, 1, arr.Len())
	assert.Equal(t, added.Key, arr.Items()[0].Key, "keys survive other mutations")

	require.Len(t, updates, 3)
	assert.Len(t, updates[0], 2)
	assert.Len(t, updates[2], 1)
	for _, rec := range updates[2] {
		for k := range rec {
			assert.NotContains(t, k, "key", "local keys never reach the records")
		}
	}

	assert.ErrorIs(t, arr.Edit(5, "title", "x"), ErrIndexOutOfRange)
	assert.ErrorIs(t, arr.Delete(-1), ErrIndexOutOfRange)
	assert.Error(t, arr.Edit(0, " ", "x"))
}

func TestFieldEditorArrayMode(t *testing.T) {
	raw := []byte(`{"formSlug":"contact","options":[{"value":"a","label":"A"}]}`)
	fe, err := NewFieldEditor(nil, "form_config", raw)
	require.NoError(t, err)
	assert.Equal(t, ModeArray, fe.Mode())
	require.NotNil(t, fe.Array())

	fe.Array().Add()
	require.NoError(t, fe.Array().Edit(1, "value", "b"))
	require.NoError(t, fe.SetField("formSlug", "newsletter"))
	assert.ErrorIs(t, fe.SetField("bogus", 1), ErrUnknownField)

	out, err := fe.Content()
	require.NoError(t, err)
	assert.JSONEq(t, `{"formSlug":"newsletter","options":[{"value":"a","label":"A"},{"value":"b","label":""}]}`, string(out))
}

func TestFieldEditorStructuredMode(t *testing.T) {
	fe, err := NewFieldEditor(nil, "hero", []byte(`{"ctaText":"Go","extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, ModeStructured, fe.Mode())
	assert.Nil(t, fe.Array())

	require.NoError(t, fe.SetField("ctaLink", "/contact"))
	out, err := fe.Content()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ctaText":"Go","ctaLink":"/contact","extra":true}`, string(out))
	require.NoError(t, fe.SetField("ctaLink", 5))

	_, err = fe.Content()
	assert.ErrorIs(t, err, ErrInvalidContent, "typed payloads are checked before save")
}

func TestFieldEditorFreeformKeepsStagedOnParseFailure(t *testing.T) {
	fe, err := NewFieldEditor(nil, "pricing_table", []byte(`{"plans":[{"name":"Basic"}]}`))
	require.NoError(t, err)
	assert.Equal(t, ModeFreeform, fe.Mode())
	assert.Contains(t, fe.Text(), `"plans"`)
	assert.ErrorIs(t, fe.SetField("plans", nil), ErrWrongMode)

	assert.False(t, fe.SetText(`{"plans": [`))
	assert.NotEmpty(t, fe.Hint())
	assert.Equal(t, `{"plans": [`, fe.Text(), "typed text is kept for the user")
	out, err := fe.Content()
	require.NoError(t, err)
	assert.JSONEq(t, `{"plans":[{"name":"Basic"}]}`, string(out))

	assert.False(t, fe.SetText(`[1,2]`))
	assert.Equal(t, "Content must be a JSON object", fe.Hint())

	assert.True(t, fe.SetText(`{"plans":[]}`))
	assert.Empty(t, fe.Hint())
	out, err = fe.Content()
	require.NoError(t, err)
	assert.JSONEq(t, `{"plans":[]}`, string(out))
}

func TestFieldEditorFallsBackWhenArrayIsMalformed(t *testing.T) {
	fe, err := NewFieldEditor(nil, "statistics", []byte(`{"stats":"lots"}`))
	require.NoError(t, err)
	assert.Equal(t, ModeFreeform, fe.Mode())
	assert.Contains(t, fe.Hint(), "stats")

	_, err = NewFieldEditor(nil, "statistics", []byte(`[1]`))
	assert.Error(t, err)
	_, err = NewFieldEditor(nil, "Not A Type!", nil)
	assert.Error(t, err)
}

func TestFieldEditorEmptyContentStartsEmptyArray(t *testing.T) {
	fe, err := NewFieldEditor(nil, "team_members", nil)
	require.NoError(t, err)
	require.Equal(t, ModeArray, fe.Mode())
	out, err := fe.Content()
	require.NoError(t, err)

	var decoded map[string][]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.NotNil(t, decoded["members"])
	assert.Empty(t, decoded["members"])
}
