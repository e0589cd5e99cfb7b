package entities

import (
	"fmt"

	"tryon-storefront/internal/domain/valueobjects"
)

type AnalysisMetadata struct {
	bodyType  valueobjects.BodyType
	skinColor valueobjects.SkinColor
	gender    string
}

// NewAnalysisMetadata parses the raw strings returned by the analysis
// endpoint. Unknown values are rejected because no reference image exists
// for them.
func NewAnalysisMetadata(bodyType, skinColor, gender string) (*AnalysisMetadata, error) {
	bt, err := valueobjects.ParseBodyType(bodyType)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis metadata: %w", err)
	}
	sc, err := valueobjects.ParseSkinColor(skinColor)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis metadata: %w", err)
	}

	return &AnalysisMetadata{
		bodyType:  bt,
		skinColor: sc,
		gender:    gender,
	}, nil
}

func (m *AnalysisMetadata) BodyType() valueobjects.BodyType {
	return m.bodyType
}

func (m *AnalysisMetadata) SkinColor() valueobjects.SkinColor {
	return m.skinColor
}

func (m *AnalysisMetadata) Gender() string {
	return m.gender
}

func (m *AnalysisMetadata) ReferenceKey(garment string) (valueobjects.ReferenceImageKey, error) {
	return valueobjects.NewReferenceImageKey(m.bodyType, m.skinColor, garment)
}
