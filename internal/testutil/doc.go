// Package testutil provides scripted provider fakes for tests.
package testutil
