// Package codec bridges the loosely-typed server representation of a controlled bot
// and the canonical domain.Bot.
//
// Reading is tolerant: every concept (node list, ids, labels, targets, executor
// config) is resolved through an ordered list of known field names, evaluated once
// per concept in this package and nowhere else. Writing is forward-only: Serialize
// emits the canonical names and never reproduces legacy aliases.
package codec
