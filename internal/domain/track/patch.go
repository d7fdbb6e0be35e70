package track

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Patch carries the editable fields of a track. Nil fields keep their
// stored value. Location and geohash are fixed at creation and have no
// counterpart here.
type Patch struct {
	Name        *string
	Description *string
	Type        *string
	Level       *string
	Favorite    *bool
	RegionTags  []string
}

// Validate checks the fields present in p.
func (p Patch) Validate() error {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return errors.New("trackName must not be empty")
		}
		if len(*p.Name) > MaxNameLength {
			return fmt.Errorf("trackName too long (max %d)", MaxNameLength)
		}
	}
	if p.RegionTags != nil && len(p.RegionTags) == 0 {
		return errors.New("trackRegionTags must contain at least a country")
	}
	return nil
}

// Apply validates p and merges it into t, stamping the update time.
// t is left untouched when validation fails.
func (p Patch) Apply(t *Track, now time.Time) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Level != nil {
		t.Level = *p.Level
	}
	if p.Favorite != nil {
		t.Favorite = *p.Favorite
	}
	if p.RegionTags != nil {
		t.Regions = FromList(p.RegionTags)
	}
	t.UpdatedDate = now.UTC()
	return nil
}
