// Package e57 implements the node tree, container lifecycle, and
// CompressedVector read/write engines of an E57 point-cloud file.
//
// A Container wraps a paged, checksummed binary file (see package
// pagefile) and holds a tree of Nodes rooted at Container.Root: typed
// scalar nodes (Integer, ScaledInteger, Float, String, Blob), aggregate
// nodes (Structure, Vector), and CompressedVector, whose data is not
// held in memory but streamed through a CompressedVectorReader or
// CompressedVectorWriter bound to caller-supplied SourceDestBuffers
// (see package packet for the on-disk record codec).
package e57
