// Package config loads env-tagged configuration structs, reading a .env
// file once per process before the first parse.
package config
