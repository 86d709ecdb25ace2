// Package loopback hosts the authorization popup on a desktop.
//
// An Opener satisfies oauth.WindowOpener. Opening a "window" starts a
// short-lived HTTP server on the loopback address named by the redirect
// URL and launches the system browser at the authorization URL. When the
// authorization server redirects back, the callback handler takes the
// role of the redirect page: it posts the authorized or rejected message
// to an oauth.MessageBus and renders a page telling the user they can
// close the tab.
//
// The returned Window reports itself closed once the session closes it,
// once the server stops, or once the abandon timeout passes without a
// callback. The popup session in package oauth treats the last two like
// a user closing the popup.
package loopback
