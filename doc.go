// Package secretskeeper is a small web application for storing short text
// secrets behind credential- and OAuth-authenticated accounts.
//
// A user registers with an email and password, or signs in through Google
// OAuth. Either path produces a User record in a document store and an
// authenticated server-side session. Once authenticated the user can submit
// secrets (appended to their record) and view the combined secret listing.
//
// # Architecture
//
// User: the sole entity. Identified by a document id, keyed for lookup by
// email (local accounts) or Google subject id (OAuth accounts). Holds the
// append-only list of submitted secrets.
//
// Strategy: a pluggable verifier that turns a request into a User. The local
// strategy checks an email/password pair against the stored bcrypt hash; the
// Google strategy exchanges an OAuth callback for a profile and looks up or
// creates the matching User.
//
// App: owns the session manager, the user store and the route handlers. The
// session is an opaque cookie-keyed server-side record with a fixed 24 hour
// lifetime; an HS256 auth-token cookie is issued alongside it for API calls.
//
// # Basic Usage
//
//	store := stores.NewMongoUserStore(client.Database("secrets").Collection("users"))
//	session := scs.New()
//	session.Lifetime = 24 * time.Hour
//
//	app := secretskeeper.New("SecretsKeeper", session, store)
//	app.JWTSecretKey = os.Getenv("SESSION_SECRET")
//
//	http.ListenAndServe(":3000", app.Handler())
//
// # Store Implementations
//
// The stores package provides a MongoDB-backed store for production and a
// file-based store suitable for development and tests.
//
// # Security
//
// Passwords are hashed with bcrypt at default cost and never stored in
// plaintext. Login failures do not reveal whether the email exists. The OAuth
// flow is protected by a random state cookie.
package secretskeeper
