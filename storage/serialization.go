// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"time"

	"github.com/poiesic/medscribe/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	return encode(func(e *encoder) {
		e.uint64(uint64(id))
	})
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	var id core.ID
	err := decode(data, func(d *decoder) {
		id = core.ID(d.uint64())
	})
	return id, err
}

// MarshalKnowledgeRecord serializes a KnowledgeRecord to bytes.
// Timestamps are stored with microsecond precision.
func MarshalKnowledgeRecord(record *core.KnowledgeRecord) []byte {
	return encode(func(e *encoder) {
		e.uint64(uint64(record.ID))
		e.string(record.Text)
		e.length(len(record.Embedding))
		for _, v := range record.Embedding {
			e.float32(v)
		}
		e.int64(record.InsertedAt.UnixMicro())
	})
}

// UnmarshalKnowledgeRecord deserializes a KnowledgeRecord from bytes.
func UnmarshalKnowledgeRecord(data []byte) (*core.KnowledgeRecord, error) {
	record := &core.KnowledgeRecord{}
	err := decode(data, func(d *decoder) {
		record.ID = core.ID(d.uint64())
		record.Text = d.string()
		n := d.length(4)
		if n > 0 {
			record.Embedding = make([]float32, n)
			for i := range record.Embedding {
				record.Embedding[i] = d.float32()
			}
		}
		record.InsertedAt = time.UnixMicro(d.int64()).UTC()
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// MarshalReport serializes a Report to bytes.
func MarshalReport(report *core.Report) []byte {
	return encode(func(e *encoder) {
		e.string(report.ID)

		e.bool(report.Patient != nil)
		if report.Patient != nil {
			e.string(report.Patient.Name)
			e.string(report.Patient.Age)
			e.string(report.Patient.Gender)
			e.string(report.Patient.Physician)
			e.string(report.Patient.VisitDate)
		}

		e.length(len(report.Entities))
		for _, ent := range report.Entities {
			e.string(ent.Term)
			e.string(string(ent.Type))
			e.float64(ent.Confidence)
			e.int(ent.Span.Start)
			e.int(ent.Span.End)
		}

		e.string(report.Summary.Text)
		e.int(report.Summary.SourceLength)
		e.int(report.Summary.SummaryLength)

		e.string(report.Narrative)

		e.length(len(report.Context))
		for _, m := range report.Context {
			e.uint64(uint64(m.RecordID))
			e.float32(m.Score)
			e.string(m.Content)
		}

		e.bool(report.Degraded)
		e.int64(report.CreatedAt.UnixMicro())
	})
}

// UnmarshalReport deserializes a Report from bytes.
func UnmarshalReport(data []byte) (*core.Report, error) {
	report := &core.Report{}
	err := decode(data, func(d *decoder) {
		report.ID = d.string()

		if d.bool() {
			report.Patient = &core.PatientContext{
				Name:      d.string(),
				Age:       d.string(),
				Gender:    d.string(),
				Physician: d.string(),
				VisitDate: d.string(),
			}
		}

		// term, type, confidence, start, end
		n := d.length(1 + 1 + 8 + 1 + 1)
		report.Entities = make([]core.Entity, n)
		for i := range report.Entities {
			report.Entities[i] = core.Entity{
				Term:       d.string(),
				Type:       core.EntityType(d.string()),
				Confidence: d.float64(),
				Span:       core.Span{Start: d.int(), End: d.int()},
			}
		}

		report.Summary = core.Summary{
			Text:          d.string(),
			SourceLength:  d.int(),
			SummaryLength: d.int(),
		}

		report.Narrative = d.string()

		// id, score, content
		n = d.length(1 + 4 + 1)
		if n > 0 {
			report.Context = make([]core.RetrievalMatch, n)
			for i := range report.Context {
				report.Context[i] = core.RetrievalMatch{
					RecordID: core.ID(d.uint64()),
					Score:    d.float32(),
					Content:  d.string(),
				}
			}
		}

		report.Degraded = d.bool()
		report.CreatedAt = time.UnixMicro(d.int64()).UTC()
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
