package badger

import (
	"encoding/binary"

	"github.com/poiesic/medscribe/core"
)

// Key prefixes for different data types
const (
	knowledgeRecordPrefix = "knorec:"
	knowledgeIDSeq        = "knorecseq"
	reportPrefix          = "report:"
)

// makeKnowledgeKey generates a key for a knowledge record by ID.
// Format: prefix + big-endian ID, so iteration order is ID order.
func makeKnowledgeKey(id core.ID) []byte {
	buf := make([]byte, len(knowledgeRecordPrefix)+8)
	offset := copy(buf, knowledgeRecordPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeReportKey generates a key for a report by ID.
func makeReportKey(id string) []byte {
	return []byte(reportPrefix + id)
}
