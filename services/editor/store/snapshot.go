// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"hash/crc32"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
)

// TypeResolver maps stored node type names back to live descriptors.
// *parser.Registry satisfies it.
type TypeResolver interface {
	ByName(name string) (*syntax.NodeType, bool)
}

// snapshot is the stored form of one parse result: the tree shape in
// preorder with node types by name. Node identity does not survive
// storage; a decoded tree shares no pointers with the one that produced
// it.
//
// Value format: [4-byte CRC32][gob-encoded snapshot]
type snapshot struct {
	Nodes []snapshotNode
}

// snapshotNode is one preorder node record. Positions holds the child
// start offsets relative to this node; its length tells the decoder how
// many of the following records are children.
type snapshotNode struct {
	Type      string
	Len       int
	Positions []int
}

// snapshotKey addresses a snapshot by language and exact content bytes.
func snapshotKey(language string, content []byte) []byte {
	sum := sha256.Sum256(content)
	return []byte(fmt.Sprintf("snap:%s:%x", language, sum))
}

// encodeSnapshot flattens a tree and frames it with a checksum.
func encodeSnapshot(tree *syntax.Tree) ([]byte, error) {
	snap := snapshot{Nodes: appendNodes(nil, tree)}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("store: encoding snapshot: %w", err)
	}

	out := make([]byte, 4+buf.Len())
	binary.BigEndian.PutUint32(out[:4], crc32.ChecksumIEEE(buf.Bytes()))
	copy(out[4:], buf.Bytes())
	return out, nil
}

// appendNodes records t and its descendants in preorder.
func appendNodes(nodes []snapshotNode, t *syntax.Tree) []snapshotNode {
	rec := snapshotNode{Type: t.Type().Name(), Len: t.Len()}
	if c := t.NumChildren(); c > 0 {
		rec.Positions = make([]int, c)
		for i := 0; i < c; i++ {
			_, rec.Positions[i] = t.Child(i)
		}
	}
	nodes = append(nodes, rec)
	for i := 0; i < t.NumChildren(); i++ {
		kid, _ := t.Child(i)
		nodes = appendNodes(nodes, kid)
	}
	return nodes
}

// decodeSnapshot verifies the checksum and rebuilds the tree, resolving
// type names through types. It fails when the payload is damaged, when a
// type name has no descriptor (the grammar changed since the snapshot was
// written), or when the rebuilt tree does not span docLen.
func decodeSnapshot(data []byte, docLen int, types TypeResolver) (*syntax.Tree, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("store: snapshot value too short (%d bytes)", len(data))
	}
	payload := data[4:]
	if crc32.ChecksumIEEE(payload) != binary.BigEndian.Uint32(data[:4]) {
		return nil, fmt.Errorf("store: snapshot checksum mismatch")
	}

	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("store: decoding snapshot: %w", err)
	}

	r := &nodeReader{nodes: snap.Nodes, types: types}
	tree, err := r.read()
	if err != nil {
		return nil, err
	}
	if r.pos != len(snap.Nodes) {
		return nil, fmt.Errorf("store: snapshot has %d trailing node records", len(snap.Nodes)-r.pos)
	}
	if tree.Len() != docLen {
		return nil, fmt.Errorf("store: snapshot spans %d bytes, content is %d", tree.Len(), docLen)
	}
	return tree, nil
}

// nodeReader consumes preorder node records.
type nodeReader struct {
	nodes []snapshotNode
	pos   int
	types TypeResolver
}

func (r *nodeReader) read() (*syntax.Tree, error) {
	if r.pos >= len(r.nodes) {
		return nil, fmt.Errorf("store: snapshot truncated at node %d", r.pos)
	}
	rec := r.nodes[r.pos]
	r.pos++

	typ, ok := r.types.ByName(rec.Type)
	if !ok {
		return nil, fmt.Errorf("store: no descriptor for node type %q", rec.Type)
	}
	if rec.Len < 0 {
		return nil, fmt.Errorf("store: node type %q has negative length %d", rec.Type, rec.Len)
	}

	kids := make([]*syntax.Tree, len(rec.Positions))
	for i := range kids {
		kid, err := r.read()
		if err != nil {
			return nil, err
		}
		kids[i] = kid
	}
	return syntax.NewTree(typ, rec.Len, kids, rec.Positions), nil
}
