// Package utils holds payload validation for the bridge and the hashing used
// to key cached transport clients.
package utils
