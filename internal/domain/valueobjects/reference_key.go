package valueobjects

import (
	"fmt"
	"strings"
)

type BodyType string
type SkinColor string

const (
	BodySlim       BodyType = "slim"
	BodyAverage    BodyType = "average"
	BodyAthletic   BodyType = "athletic"
	BodyMuscular   BodyType = "muscular"
	BodyStocky     BodyType = "stocky"
	BodyDadbod     BodyType = "dadbod"
	BodyOverweight BodyType = "overweight"
)

const (
	SkinFairLight SkinColor = "fair-light"
	SkinOlive     SkinColor = "olive"
	SkinBrown     SkinColor = "brown"
	SkinDarkBrown SkinColor = "dark-brown"
)

const DefaultGarment = "jordan_red_hoodie"

var BodyTypes = []BodyType{
	BodySlim, BodyAverage, BodyAthletic, BodyMuscular, BodyStocky, BodyDadbod, BodyOverweight,
}

var SkinColors = []SkinColor{
	SkinFairLight, SkinOlive, SkinBrown, SkinDarkBrown,
}

// The analysis service may answer with colloquial tones; the reference
// images only exist for the four canonical ones.
var skinAliases = map[string]SkinColor{
	"light":        SkinFairLight,
	"fair":         SkinFairLight,
	"pale":         SkinFairLight,
	"fair-light":   SkinFairLight,
	"medium":       SkinOlive,
	"olive":        SkinOlive,
	"brown":        SkinBrown,
	"medium-brown": SkinBrown,
	"dark":         SkinDarkBrown,
	"dark-brown":   SkinDarkBrown,
}

func ParseBodyType(s string) (BodyType, error) {
	v := BodyType(strings.ToLower(strings.TrimSpace(s)))
	for _, bt := range BodyTypes {
		if bt == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown body type %q", s)
}

func ParseSkinColor(s string) (SkinColor, error) {
	if sc, ok := skinAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return sc, nil
	}
	return "", fmt.Errorf("unknown skin color %q", s)
}

// ReferenceImageKey addresses the pre-rendered placeholder used while the
// swap is pending.
type ReferenceImageKey struct {
	bodyType  BodyType
	skinColor SkinColor
	garment   string
}

func NewReferenceImageKey(bodyType BodyType, skinColor SkinColor, garment string) (ReferenceImageKey, error) {
	if bodyType == "" || skinColor == "" {
		return ReferenceImageKey{}, fmt.Errorf("body type and skin color are required")
	}
	if garment == "" {
		garment = DefaultGarment
	}
	if strings.ContainsAny(garment, `/\.`) {
		return ReferenceImageKey{}, fmt.Errorf("invalid garment name %q", garment)
	}

	return ReferenceImageKey{
		bodyType:  bodyType,
		skinColor: skinColor,
		garment:   garment,
	}, nil
}

func (k ReferenceImageKey) BodyType() BodyType {
	return k.bodyType
}

func (k ReferenceImageKey) SkinColor() SkinColor {
	return k.skinColor
}

func (k ReferenceImageKey) IsZero() bool {
	return k.bodyType == "" && k.skinColor == ""
}

// Path is the slash-separated path sent as reference_image and used
// under the static images root.
func (k ReferenceImageKey) Path() string {
	return fmt.Sprintf("bodytypes/headswapper/%s/%s_reference_%s.png", k.bodyType, k.garment, k.skinColor)
}

func (k ReferenceImageKey) String() string {
	return string(k.bodyType) + "/" + string(k.skinColor)
}
