// Package cookies implements the browser cookie extraction engine behind
// gurl's --cookies-from-browser flag. It locates a browser's on-disk
// cookie store (Chromium and Firefox SQLite databases, Safari
// binarycookies), reads it without disturbing a running browser,
// decrypts Chromium-encrypted values, and builds an in-memory jar that
// computes the Cookie header for a request URL and for every redirect
// hop.
//
// The jar is built once per extraction and never written back; the
// engine holds no locks on the source store beyond a best-effort
// read-only open, falling back to a scoped temporary copy when the
// browser has the file locked.
//
// Cookie values are sensitive. They are never logged and never appear
// in error messages; errors identify records by domain and name only.
package cookies
