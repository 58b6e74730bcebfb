package activitypub

import (
	"errors"
	"net/url"
	"sort"
	"sync"
)

// ResolvedRef is the resolver metadata for one resolved activity field. It is
// carried next to the activity, never merged into the wire object.
type ResolvedRef struct {
	Remote   bool
	Resource Resource
}

type resolution struct {
	value interface{}
	ref   *ResolvedRef
	err   error
}

// ResolveReferences shallow-walks the activity's fields and replaces URL and
// embedded-object references to local resources with their rendered protocol
// objects. Metadata for every resolved field is returned in a side map keyed
// by field name.
//
// If keys are given, only those fields are considered; otherwise every field
// except @context is. Values that aren't URLs or id-carrying objects pass
// through unchanged, as do URLs whose path matches no resource pattern.
// Lookups run concurrently, but the operation is all-or-nothing: the first
// failure (selected in field order) discards all partial work.
//
// NOTE: This function does not perform any permission checks.
func (r *Resolver) ResolveReferences(activity map[string]interface{}, keys ...string) (map[string]interface{}, map[string]*ResolvedRef, error) {
	only := make(map[string]bool, len(keys))
	for _, k := range keys {
		only[k] = true
	}

	out := make(map[string]interface{}, len(activity))
	pending := make(map[string]*resolution)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for k, v := range activity {
		if len(keys) > 0 && !only[k] {
			out[k] = v
			continue
		}
		if len(keys) == 0 && k == "@context" {
			out[k] = v
			continue
		}

		var target string

		switch val := v.(type) {
		case string:
			u, err := url.Parse(val)
			if err != nil || u.Scheme == "" || u.Host == "" {
				out[k] = v
				continue
			}
			target = val
		case map[string]interface{}:
			id, ok := val["id"].(string)
			if !ok {
				out[k] = v
				continue
			}
			target = id
		default:
			out[k] = v
			continue
		}

		wg.Add(1)
		go func(k, target string, orig interface{}) {
			defer wg.Done()
			value, ref, err := r.resolveOne(target, orig)
			mu.Lock()
			pending[k] = &resolution{value: value, ref: ref, err: err}
			mu.Unlock()
		}(k, target, v)
	}

	wg.Wait()

	resolvedKeys := make([]string, 0, len(pending))
	for k := range pending {
		resolvedKeys = append(resolvedKeys, k)
	}
	sort.Strings(resolvedKeys)

	for _, k := range resolvedKeys {
		if err := pending[k].err; err != nil {
			return nil, nil, err
		}
	}

	refs := make(map[string]*ResolvedRef)
	for _, k := range resolvedKeys {
		out[k] = pending[k].value
		if pending[k].ref != nil {
			refs[k] = pending[k].ref
		}
	}

	return out, refs, nil
}

func (r *Resolver) resolveOne(target string, orig interface{}) (interface{}, *ResolvedRef, error) {
	if !IsInternal(r.BaseURL, target) {
		return nil, nil, &Error{Status: 406, Message: "Federation Not Implemented"}
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, nil, &Error{Status: 400, Message: `could not resolve URL "` + target + `"`}
	}

	res, err := r.ResolvePath(u.Path)
	if errors.Is(err, ErrNoMatch) {
		// Not a resource URL, leave the value alone
		return orig, nil, nil
	}
	if err != nil {
		return nil, nil, &Error{Status: 400, Message: `could not resolve URL "` + target + `"`}
	}

	return res.ActivityPub(r.BaseURL), &ResolvedRef{Remote: false, Resource: res}, nil
}
