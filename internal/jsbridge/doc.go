// Package jsbridge hosts the popup flow inside a browser when popauth is
// compiled to WebAssembly: windows are opened with window.open and the
// redirect page's postMessage events are delivered as oauth messages.
//
// The package only builds for GOOS=js GOARCH=wasm.
package jsbridge
