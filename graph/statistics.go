//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package graph

// Statistics tracks the number of connections formed per relation. The count
// moves once per FormConnection call, so parallel edges between the same node
// pair each count, unlike the slot-based EdgeCount of the graph itself.
type Statistics struct {
	edgeCounts []uint64
}

func NewStatistics() *Statistics {
	return &Statistics{}
}

// EdgeCount returns the formed-connection count of one relation. Unknown
// relations read zero.
func (s *Statistics) EdgeCount(relation int) uint64 {
	if relation < 0 || relation >= len(s.edgeCounts) {
		return 0
	}
	return s.edgeCounts[relation]
}

func (s *Statistics) incEdgeCount(relation int) {
	s.edgeCounts[relation]++
}

func (s *Statistics) addRelation() {
	s.edgeCounts = append(s.edgeCounts, 0)
}

func (s *Statistics) reset() {
	s.edgeCounts = nil
}
