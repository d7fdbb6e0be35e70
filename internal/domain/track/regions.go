package track

// RegionTags names the positional region tags: the first tag is the
// country, the second the region, the rest are free-form.
type RegionTags struct {
	Country string
	Region  string
	Extra   []string
}

// FromList builds RegionTags from the positional list form.
func FromList(tags []string) RegionTags {
	var r RegionTags
	if len(tags) > 0 {
		r.Country = tags[0]
	}
	if len(tags) > 1 {
		r.Region = tags[1]
	}
	if len(tags) > 2 {
		r.Extra = append([]string(nil), tags[2:]...)
	}
	return r
}

// List returns the positional list form. A missing country with a present
// region keeps an empty first slot so positions stay stable.
func (r RegionTags) List() []string {
	if r.Country == "" && r.Region == "" && len(r.Extra) == 0 {
		return nil
	}
	out := make([]string, 0, 2+len(r.Extra))
	out = append(out, r.Country)
	if r.Region != "" || len(r.Extra) > 0 {
		out = append(out, r.Region)
	}
	return append(out, r.Extra...)
}
