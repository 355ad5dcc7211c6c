// Package vdom implements a template-based virtual tree diffing engine.
//
// A Template is an immutable skeleton of a subtree: static elements, static
// text, and indexed placeholders for content that is computed at runtime. A
// VNode pairs a Template with the runtime values for those placeholders.
// Diffing two VNodes produces an ordered batch of low-level mutations that a
// renderer backend (browser DOM, terminal tree, in-memory model) replays
// against its retained tree to bring it up to date.
//
// Mutations follow a stack-machine protocol: every mutation that produces a
// node pushes one entry onto an implicit renderer-side stack, and splicing
// mutations (AppendChildren, ReplaceWith, InsertBefore, InsertAfter) consume
// a trailing count of entries. Replay order is load-bearing; a renderer must
// apply mutations in exactly the order they were emitted.
//
// The package also carries the hot-reload path: a HotReloadedTemplate
// describes a structurally similar replacement for a live template as a
// reordering of its existing dynamic slots plus re-rendered literal text,
// and a DynamicValuePool instantiates it against the currently mounted
// values without re-running application code.
package vdom
