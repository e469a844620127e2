// Package script loads NAnt-style build scripts into a tree of Nodes.
//
// A script is read in a single streaming pass over its XML tokens. Open
// elements are tracked on an explicit stack of frames rather than through
// recursive descent, so element nesting depth is bounded by memory only.
//
// Loading happens in two steps:
//
//  1. Parse turns one file into a root Node.
//  2. A Resolver splices the children of every <include buildfile="..."/>
//     file onto the including root. A bad include is skipped; it never
//     aborts loading of the enclosing script.
//
// Tree exposes the derived views (properties, public/private targets,
// includes) over the direct children of the root.
package script
