// Package logging configures the process-wide structured logger used by the
// popauth command line tool.
//
// Output goes through log/slog with either a text or a JSON handler, chosen
// by Init. Every record carries a "subsystem" attribute naming the part of
// the program that produced it.
//
// Two styles are supported. Components that accept a *slog.Logger, such as
// oauth.Authenticator, are given one from Logger:
//
//	auth := oauth.New(oauth.WithLogger(logging.Logger("oauth")))
//
// Command code uses the printf-style helpers:
//
//	logging.Info("cmd", "Loaded profile %s", name)
//	logging.Error("loopback", err, "Callback server stopped")
//
// Levels are parsed from flags with ParseLevel and ParseFormat. Records
// below the configured level are dropped before formatting.
package logging
