/*
Package session implements session management and persistence orchestration.

A conversation is inherently sequential: the Manager serializes every turn of a
session behind an in-process lock and, when configured, a distributed lock shared
by all replicas. Session ids are uuids minted on the first turn.
*/
package session
