//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"syscall/js"

	"github.com/signdesk/signdesk/internal/backend"
	"github.com/signdesk/signdesk/internal/geometry"
	"github.com/signdesk/signdesk/internal/marker"
	"github.com/signdesk/signdesk/internal/session"
	"github.com/signdesk/signdesk/internal/signing"
)

const (
	defaultPadWidth  = 400
	defaultPadHeight = 150
)

// openOptions is the JSON accepted by open(). An empty BaseURL runs against
// the built-in sample document.
type openOptions struct {
	BaseURL   string         `json:"baseUrl"`
	Token     string         `json:"token"`
	Marker    marker.Options `json:"marker"`
	PadWidth  int            `json:"padWidth"`
	PadHeight int            `json:"padHeight"`
	LineWidth float64        `json:"lineWidth"`
}

var (
	sess *session.Session
	pad  = signing.NewPad(defaultPadWidth, defaultPadHeight)

	errNoSession = errors.New("no document open")
)

func main() {
	bridge := js.Global().Get("Object").New()

	// --- Session ---
	bridge.Set("open", js.FuncOf(open))
	bridge.Set("save", js.FuncOf(save))
	bridge.Set("submit", js.FuncOf(submit))
	bridge.Set("isDirty", js.FuncOf(isDirty))

	// --- Marker commands ---
	bridge.Set("setPage", js.FuncOf(setPage))
	bridge.Set("setViewport", js.FuncOf(setViewport))
	bridge.Set("setMarkingMode", js.FuncOf(setMarkingMode))
	bridge.Set("pointerDown", js.FuncOf(pointerDown))
	bridge.Set("pointerMove", js.FuncOf(pointerMove))
	bridge.Set("pointerUp", js.FuncOf(pointerUp))
	bridge.Set("pointerLeave", js.FuncOf(pointerLeave))
	bridge.Set("select", js.FuncOf(selectField))
	bridge.Set("deleteSelected", js.FuncOf(deleteSelected))
	bridge.Set("deleteField", js.FuncOf(deleteField))
	bridge.Set("clearAll", js.FuncOf(clearAll))
	bridge.Set("setRequired", js.FuncOf(setRequired))

	// --- Marker queries ---
	bridge.Set("render", js.FuncOf(render))
	bridge.Set("hitTest", js.FuncOf(hitTest))
	bridge.Set("getFields", js.FuncOf(getFields))

	// --- Signature pad ---
	bridge.Set("padBegin", js.FuncOf(padBegin))
	bridge.Set("padExtend", js.FuncOf(padExtend))
	bridge.Set("padEnd", js.FuncOf(padEnd))
	bridge.Set("padClear", js.FuncOf(padClear))

	js.Global().Set("signdesk", bridge)
	js.Global().Set("signdeskWasmReady", js.ValueOf(true))

	select {}
}

// --- Session handlers ---

// open(fileId, optionsJSON?) resolves to {"dropped": n}. The first call fixes
// the marker options; later calls reuse the same session, so a load is refused
// while a save or submission is outstanding. The backend and the signature
// pad are only replaced once the document has loaded.
func open(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return rejected(errors.New("missing file id"))
	}
	fileID := args[0].String()

	var opts openOptions
	if len(args) > 1 && args[1].Type() == js.TypeString {
		if err := json.Unmarshal([]byte(args[1].String()), &opts); err != nil {
			return rejected(err)
		}
	}

	api := session.API(newSampleAPI())
	if opts.BaseURL != "" {
		api = backend.New(opts.BaseURL, backend.WithToken(opts.Token))
	}
	if sess == nil {
		sess = session.New(api, opts.Marker)
	}
	s := sess

	return promise(func(ctx context.Context) (interface{}, error) {
		dropped, err := s.OpenWith(ctx, api, fileID)
		if err != nil {
			return nil, err
		}
		pad = newPad(opts)
		return map[string]interface{}{"dropped": dropped}, nil
	})
}

func newPad(opts openOptions) *signing.Pad {
	w, h := opts.PadWidth, opts.PadHeight
	if w <= 0 || h <= 0 {
		w, h = defaultPadWidth, defaultPadHeight
	}
	p := signing.NewPad(w, h)
	if opts.LineWidth > 0 {
		p.SetLineWidth(opts.LineWidth)
	}
	return p
}

func save(this js.Value, args []js.Value) interface{} {
	s := sess
	if s == nil {
		return rejected(errNoSession)
	}
	return promise(func(ctx context.Context) (interface{}, error) {
		if err := s.Save(ctx); err != nil {
			return nil, err
		}
		return true, nil
	})
}

// submit(signerName) resolves to the embed result as JSON.
func submit(this js.Value, args []js.Value) interface{} {
	s := sess
	if s == nil {
		return rejected(errNoSession)
	}
	signer := ""
	if len(args) > 0 {
		signer = args[0].String()
	}
	return promise(func(ctx context.Context) (interface{}, error) {
		res, err := s.Submit(ctx, signer, pad)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(res)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	})
}

func isDirty(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(sess != nil && sess.Dirty())
}

// --- Marker command handlers ---

func setPage(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult(errors.New("missing page"))
	}
	return edit(func(m *marker.Marker) error {
		return m.SetPage(args[0].Int())
	})
}

// setViewport(originX, originY, renderedWidth)
func setViewport(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult(errors.New("expected originX, originY, renderedWidth"))
	}
	vp := geometry.Viewport{
		OriginX:       args[0].Float(),
		OriginY:       args[1].Float(),
		RenderedWidth: args[2].Float(),
	}
	return edit(func(m *marker.Marker) error {
		m.SetViewport(vp)
		return nil
	})
}

func setMarkingMode(this js.Value, args []js.Value) interface{} {
	on := len(args) > 0 && args[0].Truthy()
	return edit(func(m *marker.Marker) error {
		m.SetMarkingMode(on)
		return nil
	})
}

// pointerDown returns the resulting interaction state: idle, dragging or resizing.
func pointerDown(this js.Value, args []js.Value) interface{} {
	p, ok := point(args)
	if !ok {
		return errorResult(errors.New("expected x, y"))
	}
	kind := ""
	if res := edit(func(m *marker.Marker) error {
		state, err := m.PointerDown(p)
		kind = state.Kind()
		return err
	}); res != nil {
		return res
	}
	return js.ValueOf(kind)
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	p, ok := point(args)
	if !ok {
		return nil
	}
	return edit(func(m *marker.Marker) error {
		return m.PointerMove(p)
	})
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	return edit(func(m *marker.Marker) error {
		m.PointerUp()
		return nil
	})
}

func pointerLeave(this js.Value, args []js.Value) interface{} {
	return edit(func(m *marker.Marker) error {
		m.PointerLeave()
		return nil
	})
}

func selectField(this js.Value, args []js.Value) interface{} {
	id := ""
	if len(args) > 0 && args[0].Type() == js.TypeString {
		id = args[0].String()
	}
	return boolEdit(func(m *marker.Marker) bool { return m.Select(id) })
}

func deleteSelected(this js.Value, args []js.Value) interface{} {
	return boolEdit(func(m *marker.Marker) bool { return m.DeleteSelected() })
}

func deleteField(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	id := args[0].String()
	return boolEdit(func(m *marker.Marker) bool { return m.Delete(id) })
}

func clearAll(this js.Value, args []js.Value) interface{} {
	return edit(func(m *marker.Marker) error {
		m.ClearAll()
		return nil
	})
}

func setRequired(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	id, required := args[0].String(), args[1].Truthy()
	return boolEdit(func(m *marker.Marker) bool { return m.SetRequired(id, required) })
}

// --- Marker query handlers ---

// render returns the overlay of the current page as a JSON string.
func render(this js.Value, args []js.Value) interface{} {
	out := "[]"
	res := edit(func(m *marker.Marker) error {
		items, err := m.Render()
		if err != nil {
			return err
		}
		out, err = marker.OverlayToJSON(items)
		return err
	})
	if res != nil {
		return res
	}
	return js.ValueOf(out)
}

func hitTest(this js.Value, args []js.Value) interface{} {
	p, ok := point(args)
	if !ok {
		return js.ValueOf("{}")
	}
	out := "{}"
	edit(func(m *marker.Marker) error {
		hit, err := m.HitTest(p)
		if err != nil {
			return err
		}
		data, err := json.Marshal(hit)
		out = string(data)
		return err
	})
	return js.ValueOf(out)
}

func getFields(this js.Value, args []js.Value) interface{} {
	out := "[]"
	edit(func(m *marker.Marker) error {
		data, err := json.Marshal(m.Fields())
		out = string(data)
		return err
	})
	return js.ValueOf(out)
}

// --- Signature pad handlers ---

func padBegin(this js.Value, args []js.Value) interface{} {
	if p, ok := point(args); ok {
		pad.Begin(p)
	}
	return nil
}

func padExtend(this js.Value, args []js.Value) interface{} {
	if p, ok := point(args); ok {
		pad.Extend(p)
	}
	return nil
}

func padEnd(this js.Value, args []js.Value) interface{} {
	pad.End()
	return js.ValueOf(pad.StrokeCount())
}

func padClear(this js.Value, args []js.Value) interface{} {
	pad.Clear()
	return nil
}

// --- Helpers ---

// edit runs fn against the open session's marker. It returns nil on success
// and an {"error": ...} object otherwise. An unmeasured viewport defers the
// action silently.
func edit(fn func(m *marker.Marker) error) interface{} {
	if sess == nil {
		return errorResult(errNoSession)
	}
	if err := sess.Interact(fn); err != nil {
		return errorResult(err)
	}
	return nil
}

func boolEdit(fn func(m *marker.Marker) bool) interface{} {
	ok := false
	edit(func(m *marker.Marker) error {
		ok = fn(m)
		return nil
	})
	return js.ValueOf(ok)
}

func point(args []js.Value) (geometry.Point, bool) {
	if len(args) < 2 {
		return geometry.Point{}, false
	}
	return geometry.Point{X: args[0].Float(), Y: args[1].Float()}, true
}

func errorResult(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

// promise runs fn on its own goroutine and settles a JavaScript Promise with
// its result. Network calls must not block the event loop.
func promise(fn func(ctx context.Context) (interface{}, error)) js.Value {
	executor := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolve, reject := args[0], args[1]
		go func() {
			v, err := fn(context.Background())
			if err != nil {
				slog.Error("bridge call failed", "error", err)
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(js.ValueOf(v))
		}()
		return nil
	})
	defer executor.Release()
	return js.Global().Get("Promise").New(executor)
}

func rejected(err error) js.Value {
	return js.Global().Get("Promise").Call("reject", js.Global().Get("Error").New(err.Error()))
}
