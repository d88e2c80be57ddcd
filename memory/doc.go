// Package memory implements the assistant's semantic memory: a tiered,
// capacity-bounded store of past conversational turns with embedding-based
// recall.
//
// Architecture:
//   - Store: passive vector index (store/local for exact in-memory search,
//     store/badgerstore to add durable long_term records)
//   - Embedder: text-to-vector conversion (embedder/mock for tests,
//     embedder/onnx for offline MiniLM)
//   - Manager: owns the record lifecycle; records turns, recalls context,
//     and runs consolidation (decay, promotion, eviction)
//
// Tiers: records start in short_term working memory and are promoted to
// durable long_term memory when their decayed importance crosses the
// promotion threshold. Both tiers are capacity-bounded; the lowest
// (importance, lastAccessed) record is evicted first, deterministically.
package memory
