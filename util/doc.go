// Package util provides small parsing and string helpers shared by the
// configuration and auth packages.
package util
