//go:build js && wasm

package jsbridge

import (
	"context"
	"sync"
	"syscall/js"

	"popauth/pkg/oauth"
)

const (
	// PopupName is the window name passed to window.open.
	PopupName = "Authorize"
	// PopupFeatures positions the popup near the top left of the screen.
	PopupFeatures = "top=100,left=100"
)

// Opener opens popups with window.open.
type Opener struct{}

// Open implements oauth.WindowOpener. A blocked popup yields a nil window.
func (Opener) Open(_ context.Context, url string) (oauth.Window, error) {
	w := js.Global().Call("open", url, PopupName, PopupFeatures)
	if w.IsNull() || w.IsUndefined() {
		return nil, nil
	}
	return &window{v: w}, nil
}

type window struct {
	v js.Value
}

func (w *window) Closed() bool {
	return w.v.Get("closed").Bool()
}

func (w *window) Close() {
	if !w.Closed() {
		w.v.Call("close")
	}
}

// Messages delivers the message events of the global window. Object
// payloads are serialized with JSON.stringify.
type Messages struct {
	// Origin, if set, is the only origin whose messages are delivered.
	Origin string
}

// AddListener implements oauth.MessageSource.
func (m Messages) AddListener(h oauth.MessageHandler) func() {
	fn := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) == 0 {
			return nil
		}
		event := args[0]
		if m.Origin != "" && event.Get("origin").String() != m.Origin {
			return nil
		}

		data := event.Get("data")
		switch data.Type() {
		case js.TypeString:
			h(data.String())
		case js.TypeObject:
			h(js.Global().Get("JSON").Call("stringify", data).String())
		}
		return nil
	})
	js.Global().Call("addEventListener", "message", fn)

	var once sync.Once
	return func() {
		once.Do(func() {
			js.Global().Call("removeEventListener", "message", fn)
			fn.Release()
		})
	}
}

// ExpiresInArg reads the optional expiresIn argument. Missing, undefined,
// null or non-numeric values yield 0, which means the default lifetime.
func ExpiresInArg(args []js.Value) int {
	if len(args) == 0 || args[0].Type() != js.TypeNumber {
		return ExpiresIn(0, false)
	}
	return ExpiresIn(args[0].Float(), true)
}

// Callback returns the error callback given to an operation: the
// onError property of the configuration object, else the argument at
// index i. The zero Value means none was given.
func Callback(args []js.Value, i int) js.Value {
	if len(args) > 0 && args[0].Type() == js.TypeObject {
		if fn := args[0].Get("onError"); fn.Type() == js.TypeFunction {
			return fn
		}
	}
	if len(args) > i && args[i].Type() == js.TypeFunction {
		return args[i]
	}
	return js.Value{}
}
