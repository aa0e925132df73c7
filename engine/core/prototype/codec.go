package prototype

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/hrygo/shopsense/internal/version"
)

// snapshotFormatVersion identifies the snapshot layout. Bump the major on
// incompatible layout changes; decoding refuses snapshots written by a newer
// format than this build understands.
const snapshotFormatVersion = "1.0.0"

type snapshotDTO struct {
	FormatVersion string         `json:"format_version"`
	Prototypes    []prototypeDTO `json:"prototypes"`
}

type prototypeDTO struct {
	Category    string    `json:"category"`
	Brand       string    `json:"brand"`
	Embedding   []float32 `json:"embedding"`
	SampleCount int       `json:"sample_count"`
}

// EncodeSnapshot serializes a prototype table for persistence.
func EncodeSnapshot(prototypes []Prototype) ([]byte, error) {
	dto := snapshotDTO{
		FormatVersion: snapshotFormatVersion,
		Prototypes:    make([]prototypeDTO, 0, len(prototypes)),
	}
	for _, p := range prototypes {
		dto.Prototypes = append(dto.Prototypes, prototypeDTO{
			Category:    p.Category,
			Brand:       p.Brand,
			Embedding:   p.Embedding,
			SampleCount: p.SampleCount,
		})
	}

	data, err := json.Marshal(dto)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode prototype snapshot")
	}
	return data, nil
}

// DecodeSnapshot deserializes a persisted prototype table.
func DecodeSnapshot(data []byte) ([]Prototype, error) {
	var dto snapshotDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, errors.Wrap(err, "failed to decode prototype snapshot")
	}

	// Snapshots written before formats were stamped carry no version and are
	// decoded as the current layout.
	if dto.FormatVersion != "" && version.IsVersionGreaterThan(dto.FormatVersion, snapshotFormatVersion) {
		return nil, errors.Errorf("prototype snapshot format %s is newer than supported %s",
			dto.FormatVersion, snapshotFormatVersion)
	}

	prototypes := make([]Prototype, 0, len(dto.Prototypes))
	for _, p := range dto.Prototypes {
		prototypes = append(prototypes, Prototype{
			Category:    p.Category,
			Brand:       p.Brand,
			Embedding:   p.Embedding,
			SampleCount: p.SampleCount,
		})
	}
	return prototypes, nil
}
