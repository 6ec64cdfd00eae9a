// Package capability models the host environment under test.
//
// A host exposes capabilities under dotted names such as "cache.invalidate".
// The harness only ever asks one question of a host: does this name resolve,
// and if so to what value. That question is the Resolver interface.
//
// Namespace is the in-process Resolver. It is a tree of containers whose
// leaves are arbitrary values; a leaf that is a Func (or any of the function
// shapes accepted by AsFunc) is invocable. Path segments are NFC-normalized
// on both Set and Resolve so that composed and decomposed spellings of the
// same name address the same capability.
//
// # Manifests
//
// A Manifest describes a simulated host in YAML or CUE:
//
//	environment: demo-host
//	values:
//	  identity.version: "2.1"
//	functions:
//	  cache.invalidate: {}
//	  crypt.hash: {note: "sha256 only"}
//	  debug.getinfo: {error: "not implemented"}
//
// Load picks the decoder by file extension. CUE manifests are unified with
// the #Manifest schema before decoding.
package capability
