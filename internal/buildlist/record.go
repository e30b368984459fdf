package buildlist

import "encoding/json"

// Record is one published build snapshot from the canonical list.
//
// Only the fields the retention engine cares about are typed; everything
// else in the JSON object (language lists, asset manifests, ...) is carried
// opaquely in extra and written back byte-for-byte.
type Record struct {
	BuildNumber string
	Prerelease  bool
	CreatedAt   string // ISO-8601, may be empty or unparsable

	extra map[string]json.RawMessage
}

// UnmarshalJSON splits the object into the typed fields and the opaque rest.
func (r *Record) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["build_number"]; ok {
		if err := json.Unmarshal(v, &r.BuildNumber); err != nil {
			return err
		}
		delete(raw, "build_number")
	}
	if v, ok := raw["prerelease"]; ok {
		if err := json.Unmarshal(v, &r.Prerelease); err != nil {
			return err
		}
		delete(raw, "prerelease")
	}
	if v, ok := raw["created_at"]; ok {
		// A created_at of the wrong JSON type degrades to "no date" rather
		// than failing the whole list.
		_ = json.Unmarshal(v, &r.CreatedAt)
		delete(raw, "created_at")
	}

	if len(raw) > 0 {
		r.extra = raw
	} else {
		r.extra = nil
	}
	return nil
}

// MarshalJSON reassembles the typed fields and the opaque rest.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.extra)+3)
	for k, v := range r.extra {
		out[k] = v
	}

	bn, err := json.Marshal(r.BuildNumber)
	if err != nil {
		return nil, err
	}
	out["build_number"] = bn

	pr, err := json.Marshal(r.Prerelease)
	if err != nil {
		return nil, err
	}
	out["prerelease"] = pr

	if r.CreatedAt != "" {
		ca, err := json.Marshal(r.CreatedAt)
		if err != nil {
			return nil, err
		}
		out["created_at"] = ca
	}

	return json.Marshal(out)
}

// ExtraField returns an opaque passthrough field, if present.
func (r Record) ExtraField(key string) (json.RawMessage, bool) {
	v, ok := r.extra[key]
	return v, ok
}
