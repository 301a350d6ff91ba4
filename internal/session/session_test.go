package session

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signdesk/signdesk/internal/backend"
	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/geometry"
	"github.com/signdesk/signdesk/internal/marker"
	"github.com/signdesk/signdesk/internal/pdfinfo"
	"github.com/signdesk/signdesk/internal/signing"
)

type fakeAPI struct {
	mu        sync.Mutex
	info      *document.PDFInfo
	infoErr   error
	fields    []document.SignatureField
	fieldsErr error
	saveErr   error
	saved     [][]document.SignatureField
	embeds    int

	// When set, SaveFields signals started and blocks until release is closed.
	started chan struct{}
	release chan struct{}

	// Same for PDFInfo.
	infoStarted chan struct{}
	infoRelease chan struct{}
}

func (f *fakeAPI) PDFInfo(ctx context.Context, fileID string) (*document.PDFInfo, error) {
	if f.infoStarted != nil {
		close(f.infoStarted)
		<-f.infoRelease
	}
	return f.info, f.infoErr
}

func (f *fakeAPI) Fields(ctx context.Context, fileID string) ([]document.SignatureField, error) {
	return f.fields, f.fieldsErr
}

func (f *fakeAPI) SaveFields(ctx context.Context, fileID string, fields []document.SignatureField) error {
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, fields)
	return f.saveErr
}

func (f *fakeAPI) EmbedSignature(ctx context.Context, req document.EmbedRequest) (*document.EmbedResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds++
	return &document.EmbedResult{SignedDocumentURL: "https://x/signed", SignatureCount: len(req.Fields)}, nil
}

func newAPI() *fakeAPI {
	return &fakeAPI{
		info: document.NewSampleInfo(),
		fields: []document.SignatureField{
			{ID: "f1", Page: 1, X: 0.1, Y: 0.1, W: 0.2, H: 0.06, Required: true},
			{ID: "f2", Page: 9, X: 0.1, Y: 0.1, W: 0.2, H: 0.06},
		},
	}
}

func newSession(api *fakeAPI) *Session {
	n := 0
	return New(api, marker.Options{NewID: func() string {
		n++
		return "new" + strconv.Itoa(n)
	}})
}

func clearAll(m *marker.Marker) error {
	m.ClearAll()
	return nil
}

func TestOpenLoadsGeometryAndFields(t *testing.T) {
	s := newSession(newAPI())

	dropped, err := s.Open(context.Background(), "file_1")
	require.NoError(t, err)
	assert.Equal(t, 1, dropped, "field on missing page is dropped")
	assert.Equal(t, "file_1", s.FileID())
	assert.False(t, s.Dirty())

	err = s.Edit(func(m *marker.Marker) error {
		assert.Equal(t, 3, m.PageCount())
		assert.Len(t, m.Fields(), 1)
		return nil
	})
	require.NoError(t, err)
}

func TestOpenGeometryFailureIsFatal(t *testing.T) {
	api := newAPI()
	api.infoErr = errors.New("connection refused")
	s := newSession(api)

	_, err := s.Open(context.Background(), "file_1")
	assert.ErrorIs(t, err, pdfinfo.ErrDocumentUnavailable)
	assert.ErrorIs(t, s.Edit(func(*marker.Marker) error { return nil }), ErrNotLoaded)
}

func TestOpenMissingFieldListStartsEmpty(t *testing.T) {
	api := newAPI()
	api.fieldsErr = &backend.APIError{Status: http.StatusNotFound, Message: "not found"}
	s := newSession(api)

	_, err := s.Open(context.Background(), "file_1")
	require.NoError(t, err)
	require.NoError(t, s.Edit(func(m *marker.Marker) error {
		assert.Empty(t, m.Fields())
		return nil
	}))
}

func TestOpenFieldListFailure(t *testing.T) {
	api := newAPI()
	api.fieldsErr = &backend.APIError{Status: http.StatusInternalServerError, Message: "db down"}
	s := newSession(api)

	_, err := s.Open(context.Background(), "file_1")
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "db down", apiErr.Message)
}

func TestSaveClearsDirty(t *testing.T) {
	api := newAPI()
	s := newSession(api)
	_, err := s.Open(context.Background(), "file_1")
	require.NoError(t, err)

	require.NoError(t, s.Edit(clearAll))
	assert.True(t, s.Dirty())

	require.NoError(t, s.Save(context.Background()))
	assert.False(t, s.Dirty())
	require.Len(t, api.saved, 1)
	assert.Empty(t, api.saved[0])
}

func TestSaveFailureKeepsDirty(t *testing.T) {
	api := newAPI()
	api.saveErr = &backend.APIError{Status: http.StatusUnprocessableEntity, Message: "field 3 out of bounds"}
	s := newSession(api)
	_, err := s.Open(context.Background(), "file_1")
	require.NoError(t, err)
	require.NoError(t, s.Edit(clearAll))

	err = s.Save(context.Background())
	assert.ErrorIs(t, err, ErrSaveFailed)
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "field 3 out of bounds", apiErr.Message)
	assert.True(t, s.Dirty())
	assert.False(t, s.Saving())
}

func TestSaveBeforeOpen(t *testing.T) {
	s := newSession(newAPI())
	assert.ErrorIs(t, s.Save(context.Background()), ErrNotLoaded)
	assert.False(t, s.Dirty())
}

func TestConcurrentSaveIsRejected(t *testing.T) {
	api := newAPI()
	s := newSession(api)
	_, err := s.Open(context.Background(), "file_1")
	require.NoError(t, err)

	api.started = make(chan struct{})
	api.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- s.Save(context.Background()) }()
	<-api.started

	assert.True(t, s.Saving())
	assert.ErrorIs(t, s.Save(context.Background()), ErrSaveInFlight)

	// Editing and page navigation continue while the save is outstanding.
	require.NoError(t, s.Edit(func(m *marker.Marker) error { return m.SetPage(2) }))

	close(api.release)
	require.NoError(t, <-done)
	assert.Len(t, api.saved, 1)
}

func TestEditDuringSaveStaysDirty(t *testing.T) {
	api := newAPI()
	s := newSession(api)
	_, err := s.Open(context.Background(), "file_1")
	require.NoError(t, err)
	require.NoError(t, s.Edit(clearAll))

	api.started = make(chan struct{})
	api.release = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.Save(context.Background()) }()
	<-api.started

	require.NoError(t, s.Edit(func(m *marker.Marker) error {
		m.SetViewport(geometry.Viewport{RenderedWidth: 816})
		m.SetMarkingMode(true)
		_, err := m.PointerDown(geometry.Point{X: 100, Y: 100})
		m.PointerUp()
		return err
	}))

	close(api.release)
	require.NoError(t, <-done)
	assert.True(t, s.Dirty(), "edit made after the snapshot is still unsaved")
}

func TestSubmitUsesCurrentFields(t *testing.T) {
	api := newAPI()
	s := newSession(api)
	_, err := s.Open(context.Background(), "file_1")
	require.NoError(t, err)

	pad := signing.NewPad(100, 40)
	_, err = s.Submit(context.Background(), "Dana", pad)
	assert.ErrorIs(t, err, signing.ErrNoSignatureDrawn)

	pad.Begin(geometry.Point{X: 5, Y: 5})
	pad.Extend(geometry.Point{X: 60, Y: 30})
	pad.End()

	res, err := s.Submit(context.Background(), "Dana", pad)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SignatureCount)
	assert.Equal(t, 1, api.embeds)
}

func TestOpenDuringSaveIsRejected(t *testing.T) {
	api := newAPI()
	s := newSession(api)
	_, err := s.Open(context.Background(), "file_1")
	require.NoError(t, err)
	require.NoError(t, s.Edit(clearAll))

	api.started = make(chan struct{})
	api.release = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.Save(context.Background()) }()
	<-api.started

	_, err = s.Open(context.Background(), "file_2")
	assert.ErrorIs(t, err, ErrSaveInFlight)
	_, err = s.OpenWith(context.Background(), newAPI(), "file_1")
	assert.ErrorIs(t, err, ErrSaveInFlight)
	assert.Equal(t, "file_1", s.FileID())

	close(api.release)
	require.NoError(t, <-done)
	assert.False(t, s.Dirty())
	assert.Len(t, api.saved, 1)
}

func TestPageChangeDuringSaveKeepsSaveRunning(t *testing.T) {
	api := newAPI()
	s := newSession(api)
	_, err := s.Open(context.Background(), "file_1")
	require.NoError(t, err)
	require.NoError(t, s.Edit(clearAll))

	api.started = make(chan struct{})
	api.release = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.Save(context.Background()) }()
	<-api.started

	require.NoError(t, s.Edit(func(m *marker.Marker) error { return m.SetPage(3) }))
	assert.True(t, s.Saving())

	close(api.release)
	require.NoError(t, <-done)
	assert.False(t, s.Saving())
	assert.False(t, s.Dirty())
	require.Len(t, api.saved, 1)
	assert.Empty(t, api.saved[0])
	require.NoError(t, s.Edit(func(m *marker.Marker) error {
		assert.Equal(t, 3, m.Page())
		return nil
	}))
}

func TestSaveAndSubmitDuringOpenAreRejected(t *testing.T) {
	api := newAPI()
	s := newSession(api)
	_, err := s.Open(context.Background(), "file_1")
	require.NoError(t, err)

	api.infoStarted = make(chan struct{})
	api.infoRelease = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := s.Open(context.Background(), "file_2")
		done <- err
	}()
	<-api.infoStarted

	assert.ErrorIs(t, s.Save(context.Background()), ErrOpenInFlight)
	pad := signing.NewPad(100, 40)
	pad.Begin(geometry.Point{X: 5, Y: 5})
	pad.Extend(geometry.Point{X: 60, Y: 30})
	pad.End()
	_, err = s.Submit(context.Background(), "Dana", pad)
	assert.ErrorIs(t, err, ErrOpenInFlight)
	_, err = s.Open(context.Background(), "file_3")
	assert.ErrorIs(t, err, ErrOpenInFlight)

	close(api.infoRelease)
	require.NoError(t, <-done)
	assert.Equal(t, "file_2", s.FileID())
	assert.Empty(t, api.saved)
	assert.Zero(t, api.embeds)
}

func TestOpenWithSwitchesBackendOnlyOnSuccess(t *testing.T) {
	first := newAPI()
	s := newSession(first)
	_, err := s.Open(context.Background(), "file_1")
	require.NoError(t, err)

	broken := newAPI()
	broken.infoErr = errors.New("connection refused")
	_, err = s.OpenWith(context.Background(), broken, "file_2")
	require.ErrorIs(t, err, pdfinfo.ErrDocumentUnavailable)
	assert.Equal(t, "file_1", s.FileID())

	require.NoError(t, s.Edit(clearAll))
	require.NoError(t, s.Save(context.Background()))
	assert.Len(t, first.saved, 1)
	assert.Empty(t, broken.saved)

	second := newAPI()
	_, err = s.OpenWith(context.Background(), second, "file_2")
	require.NoError(t, err)
	require.NoError(t, s.Edit(clearAll))
	require.NoError(t, s.Save(context.Background()))
	assert.Len(t, first.saved, 1)
	assert.Len(t, second.saved, 1)
}

func TestInteractDefersUntilViewportMeasured(t *testing.T) {
	s := newSession(newAPI())
	_, err := s.Open(context.Background(), "file_1")
	require.NoError(t, err)

	pointerDown := func(m *marker.Marker) error {
		m.SetMarkingMode(true)
		_, err := m.PointerDown(geometry.Point{X: 400, Y: 600})
		return err
	}

	assert.ErrorIs(t, s.Edit(pointerDown), geometry.ErrTransformUnready)
	require.NoError(t, s.Interact(pointerDown))
	require.NoError(t, s.Interact(func(m *marker.Marker) error {
		return m.PointerMove(geometry.Point{X: 200, Y: 200})
	}))
	assert.False(t, s.Dirty(), "nothing created before the viewport is measured")

	assert.ErrorIs(t, s.Interact(func(m *marker.Marker) error { return m.SetPage(9) }), marker.ErrPageOutOfRange)

	require.NoError(t, s.Interact(func(m *marker.Marker) error {
		m.SetViewport(geometry.Viewport{RenderedWidth: 612})
		return pointerDown(m)
	}))
	assert.True(t, s.Dirty())
}
