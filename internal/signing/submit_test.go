package signing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/geometry"
)

type fakeEmbedder struct {
	mu      sync.Mutex
	calls   []document.EmbedRequest
	result  *document.EmbedResult
	err     error
	release chan struct{}
	started chan struct{}
}

func (f *fakeEmbedder) EmbedSignature(ctx context.Context, req document.EmbedRequest) (*document.EmbedResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var letter = []document.PageDimensions{{Width: 612, Height: 792}, {Width: 612, Height: 792}}

func oneField() []document.SignatureField {
	return []document.SignatureField{{ID: "f1", Page: 1, X: 0.1, Y: 0.8, W: 0.2, H: 0.1, Required: true}}
}

func drawnPad() *Pad {
	p := NewPad(100, 50)
	drawLine(p)
	return p
}

func TestSubmitNoSignatureDrawnMakesNoCall(t *testing.T) {
	api := &fakeEmbedder{}
	s := NewSubmitter(api)

	_, err := s.Submit(context.Background(), Submission{FileID: "file_1", Fields: oneField(), Pages: letter}, NewPad(100, 50))
	assert.ErrorIs(t, err, ErrNoSignatureDrawn)

	_, err = s.Submit(context.Background(), Submission{FileID: "file_1", Fields: oneField(), Pages: letter}, nil)
	assert.ErrorIs(t, err, ErrNoSignatureDrawn)
	assert.Zero(t, api.callCount())
}

func TestSubmitGuardOrder(t *testing.T) {
	api := &fakeEmbedder{}
	s := NewSubmitter(api)

	_, err := s.Submit(context.Background(), Submission{FileID: "file_1", Pages: letter}, NewPad(10, 10))
	assert.ErrorIs(t, err, ErrNoSignatureDrawn, "empty drawing is checked first")

	_, err = s.Submit(context.Background(), Submission{FileID: "file_1", Pages: letter}, drawnPad())
	assert.ErrorIs(t, err, ErrNoFieldsDefined)
	assert.Zero(t, api.callCount())
}

func TestSubmitSendsFieldsAndSignature(t *testing.T) {
	api := &fakeEmbedder{result: &document.EmbedResult{SignedDocumentURL: "https://x/signed", SignatureCount: 1}}
	s := NewSubmitter(api)

	res, err := s.Submit(context.Background(), Submission{
		FileID: "file_1", SignerName: "Dana", Fields: oneField(), Pages: letter,
	}, drawnPad())
	require.NoError(t, err)
	assert.Equal(t, "https://x/signed", res.SignedDocumentURL)

	require.Equal(t, 1, api.callCount())
	req := api.calls[0]
	assert.Equal(t, "file_1", req.FileID)
	assert.Equal(t, "Dana", req.SignerName)
	assert.Equal(t, oneField(), req.Fields)
	_, err = DecodeDataURI(req.SignatureData)
	assert.NoError(t, err)
}

func TestSubmitEmbedFailedKeepsCause(t *testing.T) {
	cause := errors.New("contract already signed")
	s := NewSubmitter(&fakeEmbedder{err: cause})

	_, err := s.Submit(context.Background(), Submission{FileID: "file_1", Fields: oneField(), Pages: letter}, drawnPad())
	assert.ErrorIs(t, err, ErrEmbedFailed)
	assert.ErrorIs(t, err, cause)
	assert.False(t, s.InFlight())
}

func TestSubmitRejectsFieldWithoutPage(t *testing.T) {
	api := &fakeEmbedder{}
	s := NewSubmitter(api)
	fields := []document.SignatureField{{ID: "f9", Page: 3, X: 0.1, Y: 0.1, W: 0.2, H: 0.1}}

	_, err := s.Submit(context.Background(), Submission{FileID: "file_1", Fields: fields, Pages: letter}, drawnPad())
	assert.ErrorIs(t, err, ErrNoPageGeometry)
	assert.Zero(t, api.callCount())
}

func TestSubmitSecondCallWhileInFlight(t *testing.T) {
	api := &fakeEmbedder{
		result:  &document.EmbedResult{SignedDocumentURL: "u"},
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	s := NewSubmitter(api)
	sub := Submission{FileID: "file_1", Fields: oneField(), Pages: letter}

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), sub, drawnPad())
		done <- err
	}()
	<-api.started
	assert.True(t, s.InFlight())

	_, err := s.Submit(context.Background(), sub, drawnPad())
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(api.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, api.callCount())
	assert.False(t, s.InFlight())
}

func TestPlanResolvesAgainstOwnPage(t *testing.T) {
	pages := []document.PageDimensions{{Width: 612, Height: 792}, {Width: 842, Height: 595}}
	fields := []document.SignatureField{
		{ID: "a", Page: 1, X: 0.5, Y: 0.5, W: 0.2, H: 0.05},
		{ID: "b", Page: 2, X: 0, Y: 0, W: 0.5, H: 0.5},
	}

	plan, err := Plan(fields, pages)
	require.NoError(t, err)
	require.Len(t, plan, 2)

	assert.InDelta(t, 306, plan[0].Rect.X, 1e-9)
	assert.InDelta(t, 0.45*792, plan[0].Rect.Y, 1e-9)
	assert.InDelta(t, 122.4, plan[0].Rect.Width, 1e-9)
	assert.InDelta(t, 39.6, plan[0].Rect.Height, 1e-9)

	assert.Equal(t, geometry.Rect{X: 0, Y: 297.5, Width: 421, Height: 297.5}, plan[1].Rect)
	assert.Equal(t, 2, plan[1].Page)
}
