// Package planner computes and applies relation fetch plans for shape
// descriptor trees.
//
// # Overview
//
// Rendering a tree of shapes over records fetched one relation at a
// time degenerates into one store round-trip per row. The planner
// avoids that by walking the descriptor tree up front, collecting every
// relation the rendering step will touch, and issuing a minimal set of
// fetches before any rendering happens:
//
//   - Eager paths address to-one relations fetched in the same
//     retrieval as their parent records (a join on SQL stores).
//   - Batch paths address to-many relations, and relations explicitly
//     forced to batch, fetched as one grouped retrieval per distinct
//     path regardless of parent count.
//
// # The walk
//
// Plan performs a recursive descent over the shape tree. At each node
// it resolves the declared relation hints (dynamic accessor beats
// static declaration, independently per hint kind), splits the
// candidates into eager and batch buckets, qualifies every path under
// the node's own relation path, and merges child results upward with
// deduplication by storage path.
//
// Precedence, highest first:
//
//  1. A force-batch declaration always batches the relation, even when
//     it is otherwise eager-eligible.
//  2. An explicit batch declaration at a node beats an eager
//     declaration of the same relation at that node.
//  3. A Many nested field forces batch mode for everything beneath it:
//     from the enclosing plan's point of view a plural subtree
//     contributes only batch paths.
//  4. A field whose source is satisfied by an aliased fetch descriptor
//     cannot be eager-joined and is forced to batch.
//
// When a plain path and a fetch descriptor address the same relation,
// the descriptor survives deduplication: it carries the alias and
// filter and must not silently degrade to a bare name.
//
// Shapes without a backing model contribute nothing relation-wise:
// neither their own path nor anything beneath them enters the plan.
//
// # Application and idempotence
//
// Apply executes a plan against a lazy store.Query (eager joins first,
// then batched fetches, with the node's hooks in between) or against
// already materialized records (everything becomes a grouped fetch by
// path). Render is the end-to-end entry: it consults the marker
// protocol so repeated invocations on the same instance plan and fetch
// at most once, then delegates to the configured Renderer.
package planner
