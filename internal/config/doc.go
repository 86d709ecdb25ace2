// Package config loads popauth profiles and caches issued tokens.
//
// Configuration lives in a single directory, ~/.config/popauth by default
// or the directory given with --config. It contains:
//   - config.yaml, the profile definitions
//   - tokens/, one YAML file per profile holding the last issued token
//
// # Profiles
//
// A profile names an authorization server and a client:
//
//	defaultProfile: github
//	profiles:
//	  github:
//	    grant: authorization_code
//	    clientId: Iv1.abc
//	    scopes: [read:user]
//	    authorizationEndpoint: https://github.com/login/oauth/authorize
//	    tokenEndpoint: https://github.com/login/oauth/access_token
//	    redirectUrl: http://127.0.0.1:8085/callback
//	  backend:
//	    grant: client_credentials
//	    issuer: https://auth.example.com
//	    clientId: svc-reporting
//	    clientSecret: ${REPORTING_CLIENT_SECRET}
//
// ${VAR} references are replaced with environment variables before the
// file is parsed, so secrets need not be written to disk. When issuer is
// set, endpoints left empty are filled from the server's metadata.
//
// A missing config.yaml is not an error; the result simply has no
// profiles. Problems with individual profiles are reported together as a
// ConfigurationErrorCollection.
package config
