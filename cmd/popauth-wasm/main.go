//go:build js && wasm

// Command popauth-wasm exposes the popauth operations to JavaScript as a
// global "popauth" object.
//
// The authorize and refresh functions return a Promise that always
// resolves: with the result, or with null after the error was passed to
// the caller's error callback. The callback is either the onError
// property of the configuration object or the trailing argument, and is
// called as onError(error, configuration).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"syscall/js"

	"popauth/internal/jsbridge"
	"popauth/pkg/logging"
	"popauth/pkg/oauth"
)

func main() {
	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)

	authn := oauth.New(
		oauth.WithWindowOpener(jsbridge.Opener{}),
		oauth.WithMessageSource(jsbridge.Messages{Origin: js.Global().Get("location").Get("origin").String()}),
		oauth.WithLogger(logging.Logger("oauth")),
	)

	api := map[string]any{
		"authorizeWithAuthorizationCode": js.FuncOf(func(this js.Value, args []js.Value) any {
			return promise(args, 1, func(cfg oauth.Configuration) any {
				c, ok := cfg.(*oauth.AuthorizationCodeConfig)
				if !ok {
					return wrongGrant(cfg, oauth.GrantTypeAuthorizationCode)
				}
				return authn.AuthorizeWithAuthorizationCode(context.Background(), c)
			})
		}),
		"authorizeWithClientCredentials": js.FuncOf(func(this js.Value, args []js.Value) any {
			return promise(args, 1, func(cfg oauth.Configuration) any {
				c, ok := cfg.(*oauth.ClientCredentialsConfig)
				if !ok {
					return wrongGrant(cfg, oauth.GrantTypeClientCredentials)
				}
				return authn.AuthorizeWithClientCredentials(context.Background(), c)
			})
		}),
		"refresh": js.FuncOf(func(this js.Value, args []js.Value) any {
			return promise(args, 2, func(cfg oauth.Configuration) any {
				if len(args) < 2 {
					return report(cfg, errors.New("missing refresh configuration"))
				}
				refresh, err := jsbridge.DecodeRefreshConfiguration(stringify(args[1]))
				if err != nil {
					return report(cfg, err)
				}
				return authn.Refresh(context.Background(), cfg, refresh)
			})
		}),
		"getAccessTokenExpirationDate": js.FuncOf(func(this js.Value, args []js.Value) any {
			return oauth.GetAccessTokenExpirationDate(jsbridge.ExpiresInArg(args))
		}),
		"createChallenge": js.FuncOf(func(this js.Value, args []js.Value) any {
			challenge, err := oauth.CreateChallenge()
			if err != nil {
				logging.Error("wasm", err, "Failed to create code challenge")
				return js.Null()
			}
			return jsbridge.ChallengeFields(challenge)
		}),
	}
	js.Global().Set("popauth", js.ValueOf(api))

	select {}
}

// promise decodes the configuration in args[0], runs fn in a goroutine and
// resolves a Promise with its result. Errors never reject the Promise;
// they go to the error callback found by jsbridge.Callback(args, cbIndex).
func promise(args []js.Value, cbIndex int, fn func(cfg oauth.Configuration) any) js.Value {
	jsConfig := js.Null()
	if len(args) > 0 {
		jsConfig = args[0]
	}
	callback := jsbridge.Callback(args, cbIndex)

	onError := func(err error, _ oauth.Configuration) {
		if callback.Type() != js.TypeFunction {
			logging.Warn("wasm", "Unhandled authorization error: %v", err)
			return
		}
		jsErr := js.Global().Get("Error").New(err.Error())
		for k, v := range jsbridge.ErrorFields(err) {
			jsErr.Set(k, v)
		}
		callback.Invoke(jsErr, jsConfig)
	}

	var executor js.Func
	executor = js.FuncOf(func(this js.Value, pargs []js.Value) any {
		resolve := pargs[0]

		go func() {
			defer executor.Release()

			var result any
			cfg, err := jsbridge.DecodeConfiguration(stringify(jsConfig), onError)
			if err != nil {
				onError(err, nil)
			} else {
				result = fn(cfg)
			}
			resolve.Invoke(toJS(result))
		}()
		return nil
	})
	return js.Global().Get("Promise").New(executor)
}

// report passes err to cfg's error callback and yields a nil result.
func report(cfg oauth.Configuration, err error) any {
	switch c := cfg.(type) {
	case *oauth.AuthorizationCodeConfig:
		if c.OnError != nil {
			c.OnError(err, cfg)
		}
	case *oauth.ClientCredentialsConfig:
		if c.OnError != nil {
			c.OnError(err, cfg)
		}
	}
	return nil
}

func wrongGrant(cfg oauth.Configuration, want oauth.GrantType) any {
	return report(cfg, errors.New("configuration grantType must be "+string(want)+", got "+string(cfg.GrantType())))
}

func stringify(v js.Value) string {
	if v.IsUndefined() {
		return "null"
	}
	return js.Global().Get("JSON").Call("stringify", v).String()
}

// toJS converts a result to a plain JavaScript object, or null.
func toJS(v any) js.Value {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error("wasm", err, "Failed to encode result")
		return js.Null()
	}
	return js.Global().Get("JSON").Call("parse", string(data))
}
