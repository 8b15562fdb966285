// Package scopes validates and parses the comma-separated Google OAuth scope
// lists accepted by the token loader.
//
// Only four URL shapes are recognized:
//
//	https://www.googleapis.com/auth/<name>
//	https://mail.google.com/
//	https://www.google.com/calendar/feeds
//	https://www.google.com/m8/feeds
//
// Elements are separated by a comma optionally followed by whitespace
// (newlines included, so multi-line input is accepted). Quoting, empty
// elements and trailing separators are rejected.
package scopes
