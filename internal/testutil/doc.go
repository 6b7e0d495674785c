// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when constructing messages, capturing log output and
// stubbing handlers. They are not intended for production usage.
package testutil
