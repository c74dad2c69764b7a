// Package statemachine implements a small finite state machine with an
// explicit transition table, used to keep the polling scheduler's
// lifecycle (idle, polling, backoff, stopped) honest: every state change
// goes through a registered transition and illegal ones return an error.
package statemachine
