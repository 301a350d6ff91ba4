package document

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signdesk/signdesk/internal/geometry"
)

func TestContain(t *testing.T) {
	tests := []struct {
		name string
		in   geometry.Rect
		want geometry.Rect
	}{
		{"inside", geometry.Rect{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.1}, geometry.Rect{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.1}},
		{"negative origin", geometry.Rect{X: -0.3, Y: -1, Width: 0.2, Height: 0.1}, geometry.Rect{X: 0, Y: 0, Width: 0.2, Height: 0.1}},
		{"overflow shifts inward", geometry.Rect{X: 0.95, Y: 0.98, Width: 0.2, Height: 0.1}, geometry.Rect{X: 0.8, Y: 0.9, Width: 0.2, Height: 0.1}},
		{"too small", geometry.Rect{X: 0.5, Y: 0.5, Width: 0.01, Height: 0}, geometry.Rect{X: 0.5, Y: 0.5, Width: MinSize, Height: MinSize}},
		{"too large", geometry.Rect{X: 0.5, Y: 0.5, Width: 3, Height: 1.5}, geometry.Rect{X: 0, Y: 0, Width: 1, Height: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Contain(tt.in, MinSize)
			assert.InDelta(t, tt.want.X, got.X, 1e-12)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-12)
			assert.InDelta(t, tt.want.Width, got.Width, 1e-12)
			assert.InDelta(t, tt.want.Height, got.Height, 1e-12)
		})
	}
}

func TestNormalize(t *testing.T) {
	f := SignatureField{ID: "a", Page: 2, X: 0.9, Y: 0.2, W: 0.2, H: 0.01}
	got, ok := Normalize(f, 2, MinSize)
	require.True(t, ok)
	assert.InDelta(t, 0.8, got.X, 1e-12)
	assert.InDelta(t, MinSize, got.H, 1e-12)

	_, ok = Normalize(SignatureField{ID: "b", Page: 3, W: 0.2, H: 0.1}, 2, MinSize)
	assert.False(t, ok)

	_, ok = Normalize(SignatureField{ID: "c", Page: 1, X: math.NaN(), W: 0.2, H: 0.1}, 2, MinSize)
	assert.False(t, ok)

	_, ok = Normalize(SignatureField{Page: 1, W: 0.2, H: 0.1}, 2, MinSize)
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	ok := SignatureField{ID: "a", Page: 1, X: 0.8, Y: 0.95, W: 0.2, H: 0.05}
	assert.NoError(t, Validate(ok, 1, MinSize))

	bad := SignatureField{ID: "b", Page: 4, X: -0.1, Y: 0.99, W: 0.01, H: 0.05}
	err := Validate(bad, 3, MinSize)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidField)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "b", verr.FieldID)
	assert.Len(t, verr.Problems, 4)
}

func TestFieldJSONShape(t *testing.T) {
	f := SignatureField{ID: "sigfield_1", Page: 1, X: 0.1, Y: 0.2, W: 0.3, H: 0.05, Required: true}
	data, err := json.Marshal(FieldList{Fields: []SignatureField{f}})
	require.NoError(t, err)
	require.NoError(t, CheckFieldList(data))
	assert.JSONEq(t, `{"fields":[{"id":"sigfield_1","page":1,"x":0.1,"y":0.2,"w":0.3,"h":0.05,"required":true}]}`, string(data))
}

func TestCheckPDFInfo(t *testing.T) {
	assert.NoError(t, CheckPDFInfo([]byte(`{"page_count":1,"pages":[{"width":612,"height":792}]}`)))

	for _, body := range []string{
		`{"page_count":1}`,
		`{"page_count":0,"pages":[{"width":612,"height":792}]}`,
		`{"page_count":1,"pages":[{"width":0,"height":792}]}`,
		`{"page_count":"1","pages":[]}`,
		`not json`,
	} {
		assert.ErrorIs(t, CheckPDFInfo([]byte(body)), ErrSchema, body)
	}
}

func TestCheckFieldList(t *testing.T) {
	assert.NoError(t, CheckFieldList([]byte(`{"fields":[]}`)))
	assert.NoError(t, CheckFieldList([]byte(`{"fields":null}`)))
	assert.ErrorIs(t, CheckFieldList([]byte(`{"fields":[{"id":"x","page":1}]}`)), ErrSchema)
	assert.ErrorIs(t, CheckFieldList([]byte(`{"items":[]}`)), ErrSchema)
}

func TestFieldListDecodesWidthAndHeight(t *testing.T) {
	body := []byte(`{"fields":[{"id":"a","page":1,"x":0.1,"y":0.1,"w":0.3,"h":0.1}]}`)
	require.NoError(t, CheckFieldList(body))

	var list FieldList
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Fields, 1)
	assert.Equal(t, 0.3, list.Fields[0].W)
	assert.Equal(t, 0.1, list.Fields[0].H)

	long := []byte(`{"fields":[{"id":"a","page":1,"x":0.1,"y":0.1,"width":0.3,"height":0.1}]}`)
	assert.ErrorIs(t, CheckFieldList(long), ErrSchema)
}

func TestCheckEmbedResult(t *testing.T) {
	assert.NoError(t, CheckEmbedResult([]byte(`{"signed_document_url":"/signed/sig_1","signed_at":"2026-01-01T00:00:00Z","signer_name":"Dana","signature_count":2}`)))
	assert.ErrorIs(t, CheckEmbedResult([]byte(`{"signed_at":"x"}`)), ErrSchema)
}

func TestSampleInfoMatchesFields(t *testing.T) {
	info := NewSampleInfo()
	assert.Equal(t, info.PageCount, len(info.Pages))
	for _, f := range NewSampleFields() {
		assert.NoError(t, Validate(f, info.PageCount, MinSize))
	}
}
